// Package cli реализует инструмент командной строки Dockflow.
//
// CLI работает через HTTP API и не импортирует внутренние пакеты:
// типы ответов продублированы в client.go.
//
// Команды сгруппированы по ресурсам:
//   - node: list, create, show, delete, apply, inject
//   - dispatch: list, show
//   - schedule: list, create, show, update, delete, enable, disable
//   - actions KIND, search containers|volumes
//
// Каждая группа создаётся фабрикой (NewNodeCmd и т.д.), принимающей
// clientFn и outputFn: Client и Output создаются лениво, после разбора
// PersistentFlags.
//
// Данные печатаются в stdout (таблица или --json), сообщения в stderr:
//
//	dockflow node list --json | jq '.[].name'
package cli
