package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shaiso/dockflow/internal/domain"
)

// validPropertyTypes — допустимые типы выражений.
var validPropertyTypes = map[string]bool{
	"":                  true,
	domain.PropertyStr:  true,
	domain.PropertyNum:  true,
	domain.PropertyBool: true,
	domain.PropertyJSON: true,
	domain.PropertyMsg:  true,
	domain.PropertyEnv:  true,
	domain.PropertyTmpl: true,
}

// IsValidPropertyType проверяет, является ли тип выражения допустимым.
func IsValidPropertyType(t string) bool {
	return validPropertyTypes[t]
}

// EvaluateProperty вычисляет выражение узла для сообщения.
//
// Пустое выражение возвращает (nil, nil): значение отсутствует.
// Тип "" эквивалентен "str".
func EvaluateProperty(prop domain.Property, msg domain.Message) (any, error) {
	if prop.IsBlank() {
		return nil, nil
	}

	switch prop.Type {
	case "", domain.PropertyStr:
		return prop.Value, nil

	case domain.PropertyNum:
		n, err := strconv.ParseFloat(strings.TrimSpace(prop.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: num %q", ErrInvalidProperty, prop.Value)
		}
		return n, nil

	case domain.PropertyBool:
		b, err := strconv.ParseBool(strings.TrimSpace(prop.Value))
		if err != nil {
			return nil, fmt.Errorf("%w: bool %q", ErrInvalidProperty, prop.Value)
		}
		return b, nil

	case domain.PropertyJSON:
		var v any
		if err := json.Unmarshal([]byte(prop.Value), &v); err != nil {
			return nil, fmt.Errorf("%w: json: %v", ErrInvalidProperty, err)
		}
		return RenderValue(v, NewContext(msg))

	case domain.PropertyMsg:
		v, ok := LookupPath(msg, prop.Value)
		if !ok {
			return nil, nil
		}
		return v, nil

	case domain.PropertyEnv:
		v, ok := os.LookupEnv(strings.TrimSpace(prop.Value))
		if !ok {
			return nil, nil
		}
		return v, nil

	case domain.PropertyTmpl:
		return Render(prop.Value, NewContext(msg))

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPropertyType, prop.Type)
	}
}

// LookupPath ищет значение по пути через точку: "payload.items.0.id".
// Числовые сегменты индексируют массивы.
func LookupPath(msg map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(strings.TrimPrefix(path, "msg."))
	if path == "" {
		return nil, false
	}

	var cur any = msg
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case domain.Message:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}

	if cur == nil {
		return nil, false
	}
	return cur, true
}
