package resolve

import (
	"fmt"
	"strings"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/engine"
)

// Input — источники значений для одного сообщения.
type Input struct {
	Node *domain.Node
	Msg  domain.Message
}

// Accessor — один кандидат источника значения поля.
// Возвращает (значение, true), если значение присутствует.
type Accessor struct {
	Name   string
	Lookup func(in *Input) (any, bool, error)
}

// Static — значение из статической конфигурации узла, если оно не пустое.
func Static(name string, get func(n *domain.Node) string) Accessor {
	return Accessor{
		Name: "node." + name,
		Lookup: func(in *Input) (any, bool, error) {
			if in.Node == nil {
				return nil, false, nil
			}
			v := strings.TrimSpace(get(in.Node))
			if v == "" {
				return nil, false, nil
			}
			return v, true, nil
		},
	}
}

// Flag — булев флаг из конфигурации узла. Присутствует всегда.
func Flag(name string, get func(n *domain.Node) bool) Accessor {
	return Accessor{
		Name: "node." + name,
		Lookup: func(in *Input) (any, bool, error) {
			if in.Node == nil {
				return false, true, nil
			}
			return get(in.Node), true, nil
		},
	}
}

// Expr — типизированное выражение узла, вычисляемое для сообщения.
func Expr(name string, get func(n *domain.Node) domain.Property) Accessor {
	return Accessor{
		Name: "node." + name,
		Lookup: func(in *Input) (any, bool, error) {
			if in.Node == nil {
				return nil, false, nil
			}
			prop := get(in.Node)
			v, err := engine.EvaluateProperty(prop, in.Msg)
			if err != nil {
				return nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidExpression, name, err)
			}
			if v == nil {
				return nil, false, nil
			}
			return v, true, nil
		},
	}
}

// MsgField — поле верхнего уровня сообщения.
func MsgField(key string) Accessor {
	return Accessor{
		Name: "msg." + key,
		Lookup: func(in *Input) (any, bool, error) {
			v, ok := in.Msg.Field(key)
			return v, ok, nil
		},
	}
}

// PayloadField — поле внутри msg.payload.
func PayloadField(key string) Accessor {
	return Accessor{
		Name: "msg.payload." + key,
		Lookup: func(in *Input) (any, bool, error) {
			v, ok := in.Msg.PayloadField(key)
			return v, ok, nil
		},
	}
}

// PayloadString — сам msg.payload, если это непустая строка.
func PayloadString() Accessor {
	return Accessor{
		Name: "msg.payload",
		Lookup: func(in *Input) (any, bool, error) {
			s, ok := in.Msg.Payload().(string)
			if !ok || strings.TrimSpace(s) == "" {
				return nil, false, nil
			}
			return s, true, nil
		},
	}
}

// EmptyObject — значение по умолчанию {}. Каждый вызов отдаёт новый объект.
func EmptyObject() Accessor {
	return Accessor{
		Name: "default",
		Lookup: func(*Input) (any, bool, error) {
			return map[string]any{}, true, nil
		},
	}
}

// Field — поле запроса и упорядоченный список его источников.
type Field struct {
	Name    string
	Sources []Accessor

	// Object — значение приводится к объекту (JSON-строка декодируется).
	Object bool
}

// Lookup возвращает значение первого источника, в котором оно присутствует.
// Источники после найденного не вычисляются.
func (f Field) Lookup(in *Input) (any, bool, error) {
	for _, src := range f.Sources {
		v, ok, err := src.Lookup(in)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return v, true, nil
		}
	}
	return nil, false, nil
}
