// Package outcome классифицирует результат удалённого вызова.
//
// Для каждого действия задаётся Policy: какие HTTP-статусы распознаются
// и во что превращаются. Всё, что не распознано, становится
// unknown_error: такой результат логируется, но payload не отправляется.
package outcome

import (
	"maps"
	"strconv"
	"strings"

	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/domain"
)

// Rule — что означает конкретный статус для действия.
//
// Text поддерживает подстановки {id}, {code}, {reason}.
type Rule struct {
	Kind domain.OutcomeKind
	Text string
}

// Policy — распознаваемые статусы действия.
type Policy struct {
	Rules map[int]Rule

	// Unknown — текст лога для неклассифицированной ошибки.
	Unknown string
}

// With возвращает копию политики с дополнительным правилом.
func (p Policy) With(code int, kind domain.OutcomeKind, text string) Policy {
	out := Policy{Rules: maps.Clone(p.Rules), Unknown: p.Unknown}
	if out.Rules == nil {
		out.Rules = make(map[int]Rule)
	}
	out.Rules[code] = Rule{Kind: kind, Text: text}
	return out
}

// Recognizes возвращает true, если статус распознаётся политикой.
func (p Policy) Recognizes(code int) bool {
	_, ok := p.Rules[code]
	return ok
}

// Classify превращает результат вызова в Outcome. Функция чистая.
func Classify(p Policy, value any, err error) domain.Outcome {
	if err == nil {
		return domain.Outcome{Kind: domain.OutcomeSuccess, Value: value}
	}

	code, reason, _ := docker.StatusOf(err)
	if reason == "" {
		reason = err.Error()
	}

	kind := domain.OutcomeUnknownError
	if rule, ok := p.Rules[code]; ok {
		kind = rule.Kind
	}

	return domain.Outcome{
		Kind:       kind,
		Err:        err,
		StatusCode: code,
		Reason:     reason,
	}
}

// Describe формирует текст лога для неуспешного результата.
func (p Policy) Describe(o domain.Outcome, id string) string {
	if o.Kind == domain.OutcomeSuccess {
		return ""
	}

	text := p.Unknown
	if rule, ok := p.Rules[o.StatusCode]; ok && o.Kind != domain.OutcomeUnknownError {
		text = rule.Text
	}
	if text == "" {
		text = DefaultUnknown
	}

	return strings.NewReplacer(
		"{id}", id,
		"{code}", strconv.Itoa(o.StatusCode),
		"{reason}", o.Reason,
	).Replace(text)
}
