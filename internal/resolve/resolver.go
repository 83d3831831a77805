// Package resolve собирает ActionRequest из конфигурации узла и входящего сообщения.
//
// Каждое поле разбирается независимо: источники перебираются в объявленном
// порядке (узел → выражение → msg → msg.payload → legacy алиасы),
// берётся первое присутствующее значение.
package resolve

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/dockflow/internal/domain"
)

// Resolve собирает запрос для узла и сообщения.
//
// Ошибки фатальны для сообщения: *MissingFieldError, ErrInvalidExpression,
// ErrInvalidField, ErrUnknownKind. Ввода-вывода нет.
func Resolve(node *domain.Node, msg domain.Message) (*domain.ActionRequest, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrUnknownKind)
	}
	table, ok := TableFor(node.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, node.Kind)
	}
	if msg == nil {
		msg = domain.Message{}
	}
	return table.Resolve(&Input{Node: node, Msg: msg})
}

// Resolve собирает запрос по таблице.
func (t *Table) Resolve(in *Input) (*domain.ActionRequest, error) {
	req := &domain.ActionRequest{
		Kind:  t.Kind,
		Extra: make(map[string]any),
	}

	action, ok, err := t.Action.Lookup(in)
	if err != nil {
		return nil, err
	}
	req.Action = asString(action)
	if !ok || req.Action == "" {
		return nil, &MissingFieldError{Kind: t.Kind, Field: FieldAction}
	}

	id, ok, err := t.ResourceID.Lookup(in)
	if err != nil {
		return nil, err
	}
	if ok {
		req.ResourceID = asString(id)
	}
	if req.ResourceID == "" && !t.TargetOptional[req.Action] {
		return nil, &MissingFieldError{Kind: t.Kind, Action: req.Action, Field: FieldResourceID}
	}

	cmd, _, err := t.Command.Lookup(in)
	if err != nil {
		return nil, err
	}
	req.Command = asString(cmd)

	opts, _, err := t.Options.Lookup(in)
	if err != nil {
		return nil, err
	}
	if req.Options, err = asObject(FieldOptions, opts); err != nil {
		return nil, err
	}

	for _, f := range t.Extra {
		v, ok, err := f.Lookup(in)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if f.Object {
			if v, err = asObject(f.Name, v); err != nil {
				return nil, err
			}
		}
		req.Extra[f.Name] = v
	}

	for _, name := range t.Requires[req.Action] {
		if s, isStr := req.Extra[name].(string); req.Extra[name] == nil || (isStr && s == "") {
			return nil, &MissingFieldError{Kind: t.Kind, Action: req.Action, Field: name}
		}
	}

	return req, nil
}

// asString приводит значение к строке: строки как есть, скаляры через fmt,
// структуры через JSON.
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON-числа приходят как float64: 1234567, а не 1.234567e+06.
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int, int64, bool:
		return fmt.Sprint(s)
	case map[string]any:
		if len(s) == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// asObject приводит значение к объекту. JSON-строка декодируется.
func asObject(field string, v any) (map[string]any, error) {
	switch o := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return o, nil
	case domain.Message:
		return map[string]any(o), nil
	case string:
		if strings.TrimSpace(o) == "" {
			return map[string]any{}, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(o), &m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidField, field, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object, got %T", ErrInvalidField, field, v)
	}
}
