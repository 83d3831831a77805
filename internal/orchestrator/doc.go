// Package orchestrator пересылает исходящие сообщения узлов по wires.
//
// Orchestrator отвечает за:
//   - Получение исходящих сообщений из очереди nodes.output
//   - Создание dispatch для каждого узла-получателя
//   - Защиту от повторной доставки (idempotency key "<_msgid>:<target>")
//   - Публикацию node.input для воркеров
//
// Сами узлы ничего не знают о соседях: wires хранятся в БД и читаются
// здесь.
package orchestrator
