package domain

import (
	"maps"

	"github.com/google/uuid"
)

// Message — сообщение flow: произвольный JSON-объект с основным полем payload.
type Message map[string]any

// Ключи сообщения, которые используются напрямую.
const (
	MsgKeyID      = "_msgid"
	MsgKeyPayload = "payload"
)

// NewMessage создаёт сообщение с новым _msgid и указанным payload.
func NewMessage(payload any) Message {
	return Message{
		MsgKeyID:      uuid.NewString(),
		MsgKeyPayload: payload,
	}
}

// Clone возвращает поверхностную копию сообщения.
func (m Message) Clone() Message {
	if m == nil {
		return Message{}
	}
	return maps.Clone(m)
}

// ID возвращает _msgid или пустую строку.
func (m Message) ID() string {
	id, _ := m[MsgKeyID].(string)
	return id
}

// Payload возвращает основное поле сообщения.
func (m Message) Payload() any {
	return m[MsgKeyPayload]
}

// WithPayload возвращает копию сообщения с заменённым payload.
func (m Message) WithPayload(payload any) Message {
	out := m.Clone()
	out[MsgKeyPayload] = payload
	return out
}

// Field возвращает поле верхнего уровня.
// Второе значение false, если поля нет или оно nil.
func (m Message) Field(name string) (any, bool) {
	v, ok := m[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// PayloadField возвращает поле из payload, если payload — объект.
func (m Message) PayloadField(name string) (any, bool) {
	switch p := m.Payload().(type) {
	case map[string]any:
		v, ok := p[name]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	case Message:
		return p.Field(name)
	default:
		return nil, false
	}
}
