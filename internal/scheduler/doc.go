// Package scheduler отправляет сообщения в узлы по расписанию.
//
// Scheduler периодически проверяет schedules с истекшим next_due_at
// и создаёт dispatch для узла schedule.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Tick, processSchedule)
//   - cron.go      — cron-выражения, интервалы и валидация
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Schedules:  scheduleRepo,
//	    Dispatches: dispatchRepo,
//	    Nodes:      nodeRepo,
//	    Publisher:  publisher, // опционально
//	    Logger:     logger,
//	})
//
//	if err := sched.Tick(ctx); err != nil {
//	    logger.Error("scheduler tick failed", "error", err)
//	}
//
// Tick вызывается только лидером: leader election делается в main.go
// через pg_try_advisory_lock.
package scheduler
