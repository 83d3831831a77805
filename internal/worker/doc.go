// Package worker — среда выполнения узлов.
//
// # Обзор
//
// Worker забирает dispatch в статусе QUEUED и прогоняет входящее сообщение
// через dispatch.Engine. Источники dispatch:
//
//   - очередь nodes.input (event-driven)
//   - периодическая выборка QUEUED из БД (polling fallback)
//
// Исходящие сообщения узла публикуются в nodes.output, статусы и
// уведомления — в fanout exchange dockflow.status.
//
// # Обработка dispatch
//
//  1. Claim: QUEUED → IDLE атомарно, второй воркер получит ErrDispatchNotQueued
//  2. Загрузка узла
//  3. engine.Dispatch: resolve и route синхронно
//  4. Ошибка resolve / route → FAILED, сообщений нет
//  5. Иначе INVOKING; удалённый вызов и потоки идут в фоне
//  6. После завершения — COMPLETED или STREAM_CLOSED, результат в БД
//
// Обработчик очереди не ждёт окончания вызова: поток stats может
// работать до остановки процесса. Воркер дожидается фоновых вызовов в Stop.
//
// Workers масштабируются горизонтально: несколько экземпляров
// потребляют из одной очереди nodes.input.
package worker
