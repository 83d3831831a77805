// Package api реализует REST API для управления узлами.
//
// Маршруты:
//   - /api/v1/nodes       — CRUD узлов, apply набора, inject сообщения
//   - /api/v1/dispatches  — история обработки сообщений
//   - /api/v1/schedules   — расписания inject
//   - /api/v1/actions     — таблицы действий по видам ресурсов
//   - /api/v1/status/ws   — статусы узлов в реальном времени (WebSocket)
//   - /containerSearch, /volumeSearch — списки ресурсов для автодополнения
package api
