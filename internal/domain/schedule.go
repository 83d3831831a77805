package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание автоматической отправки сообщения в узел (inject).
//
// Schedule позволяет отправлять сообщение:
// - По cron-выражению: "0 9 * * *" (каждый день в 9:00)
// - По интервалу: каждые N секунд
//
// Scheduler проверяет next_due_at и создаёт dispatch, когда время подошло.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// NodeID — узел, в который отправляется сообщение.
	NodeID uuid.UUID `json:"node_id"`

	// Name — имя расписания для удобства.
	Name string `json:"name,omitempty"`

	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Примеры:
	//   "0 9 * * *"     — каждый день в 9:00
	//   "*/5 * * * *"   — каждые 5 минут
	//   "0 0 * * 0"     — каждое воскресенье в полночь
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между запусками.
	// Используется если CronExpr не задан.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	// Примеры: "Europe/Moscow", "America/New_York"
	Timezone string `json:"timezone"`

	// Enabled — флаг активности расписания.
	// Если false, scheduler игнорирует это расписание.
	Enabled bool `json:"enabled"`

	// NextDueAt — время следующего запуска.
	// Scheduler создаёт dispatch, когда now >= NextDueAt.
	// После создания dispatch, Scheduler вычисляет новое NextDueAt.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последней отправки.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastDispatchID — ID последнего созданного dispatch.
	LastDispatchID *uuid.UUID `json:"last_dispatch_id,omitempty"`

	// Message — поля отправляемого сообщения (payload, topic, action, ...).
	// Каждая отправка получает свой _msgid.
	Message map[string]any `json:"message,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// IsDue проверяет, пора ли запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.NextDueAt == nil {
		return false
	}
	return now.After(*s.NextDueAt) || now.Equal(*s.NextDueAt)
}

// RecordRun записывает информацию об отправке.
func (s *Schedule) RecordRun(dispatchID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	s.LastRunAt = &now
	s.LastDispatchID = &dispatchID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}

// BuildMessage создаёт входящее сообщение для очередной отправки.
func (s *Schedule) BuildMessage() Message {
	msg := Message{}
	for k, v := range s.Message {
		msg[k] = v
	}
	msg[MsgKeyID] = uuid.NewString()
	if _, ok := msg[MsgKeyPayload]; !ok {
		msg[MsgKeyPayload] = time.Now().UnixMilli()
	}
	return msg
}
