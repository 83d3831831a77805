package dispatch

import (
	"sync"

	"github.com/shaiso/dockflow/internal/domain"
)

// Sink получает то, что узел отдаёт во flow.
//
// Вызовы для одного dispatch идут по порядку, но разные dispatch
// вызывают Sink конкурентно: реализация должна быть потокобезопасной.
type Sink interface {
	Send(msg domain.Message)
	Status(update domain.StatusUpdate)
	Log(entry domain.LogEntry)
}

// Recorder — Sink, который запоминает всё по порядку.
type Recorder struct {
	mu       sync.Mutex
	messages []domain.Message
	statuses []domain.StatusUpdate
	logs     []domain.LogEntry
}

func (r *Recorder) Send(msg domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *Recorder) Status(update domain.StatusUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, update)
}

func (r *Recorder) Log(entry domain.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, entry)
}

// Messages возвращает копию отправленных сообщений.
func (r *Recorder) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.messages...)
}

// Statuses возвращает копию обновлений статуса.
func (r *Recorder) Statuses() []domain.StatusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StatusUpdate(nil), r.statuses...)
}

// Logs возвращает копию уведомлений.
func (r *Recorder) Logs() []domain.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LogEntry(nil), r.logs...)
}

// LastStatus возвращает последнее обновление статуса.
func (r *Recorder) LastStatus() domain.StatusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return domain.StatusClear
	}
	return r.statuses[len(r.statuses)-1]
}
