package docker

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/docker/docker/client"
)

// statusSlot хранит HTTP-статус последнего ответа daemon в рамках одного вызова.
type statusSlot struct {
	code atomic.Int32
}

type statusKey struct{}

// trackStatus кладёт в контекст пустой слот статуса.
// Вложенный вызов переиспользует слот родителя.
func trackStatus(ctx context.Context) context.Context {
	if _, ok := ctx.Value(statusKey{}).(*statusSlot); ok {
		return ctx
	}
	return context.WithValue(ctx, statusKey{}, &statusSlot{})
}

// recordedStatus возвращает статус ошибочного ответа, записанный транспортом.
// 0 — ответа не было или он успешный.
func recordedStatus(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	slot, ok := ctx.Value(statusKey{}).(*statusSlot)
	if !ok {
		return 0
	}
	if code := int(slot.code.Load()); code >= 400 {
		return code
	}
	return 0
}

// statusRecorder записывает resp.StatusCode в слот контекста запроса.
type statusRecorder struct {
	next http.RoundTripper
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	slot, _ := req.Context().Value(statusKey{}).(*statusSlot)
	if slot != nil {
		slot.code.Store(0)
	}
	resp, err := r.next.RoundTrip(req)
	if slot != nil && resp != nil {
		slot.code.Store(int32(resp.StatusCode))
	}
	return resp, err
}

// WithStatusCapture оборачивает транспорт клиента SDK так, чтобы ошибки
// несли настоящий HTTP-статус daemon (502, 422, ...), а не класс errdefs.
// Опция ставится после опций адреса (FromEnv, WithHost).
func WithStatusCapture() client.Opt {
	return func(c *client.Client) error {
		hc := c.HTTPClient()
		next := hc.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		// Обёртка скрывает *http.Transport от SDK: схему выставляем сами.
		if tr, ok := next.(*http.Transport); ok && tr.TLSClientConfig != nil {
			if err := client.WithScheme("https")(c); err != nil {
				return err
			}
		}
		hc.Transport = &statusRecorder{next: next}
		return client.WithHTTPClient(hc)(c)
	}
}
