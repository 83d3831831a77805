// Package telemetry — логирование и метрики процессов dockflow.
//
// Логгер настраивается переменными LOG_LEVEL и LOG_FORMAT и передаётся
// через context.Context. Метрики dispatch и потоков регистрируются
// через promauto и отдаются на /metrics.
package telemetry
