package dispatch

import (
	"context"
	"sync"

	"github.com/shaiso/dockflow/internal/domain"
)

// Pending — состояние одного dispatch.
type Pending struct {
	// Key — ключ dispatch (_msgid входящего сообщения или новый uuid).
	Key string

	// Request — разобранный запрос; nil, если разбор не удался.
	Request *domain.ActionRequest

	mu      sync.Mutex
	state   domain.DispatchState
	outcome *domain.Outcome
	emitted int
	err     error
	done    chan struct{}
}

func newPending(key string) *Pending {
	return &Pending{
		Key:   key,
		state: domain.DispatchStateIdle,
		done:  make(chan struct{}),
	}
}

// Done закрывается, когда dispatch достиг финального состояния.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait ждёт завершения dispatch или отмены контекста.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State возвращает текущее состояние.
func (p *Pending) State() domain.DispatchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Outcome возвращает последний классифицированный результат или nil.
func (p *Pending) Outcome() *domain.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outcome == nil {
		return nil
	}
	o := *p.outcome
	return &o
}

// Emitted возвращает число отправленных сообщений.
func (p *Pending) Emitted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.emitted
}

// Err возвращает фатальную ошибку или ошибку потока.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pending) setState(s domain.DispatchState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

func (p *Pending) record(o domain.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcome = &o
}

func (p *Pending) sent() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitted++
}

func (p *Pending) finish(s domain.DispatchState, err error) {
	p.mu.Lock()
	p.state = s
	p.err = err
	p.mu.Unlock()
	close(p.done)
}
