// Package dispatch обрабатывает одно входящее сообщение узла.
//
// Последовательность:
//
//	сброс статуса → разбор параметров (resolve) → выбор операции (actions)
//	→ удалённый вызов → классификация (outcome) → уведомление (notify)
//
// Разбор и выбор операции выполняются синхронно в Dispatch. Удалённый
// вызов выполняется в отдельной горутине, поэтому несколько сообщений
// могут ждать Docker Engine одновременно. Результаты уходят в Sink.
//
// Отмены отдельного вызова нет: вызов или поток работают до завершения,
// ошибки или отмены контекста процесса.
package dispatch
