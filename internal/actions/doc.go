// Package actions содержит таблицы операций Docker по видам ресурсов.
//
// Каждое действие описывается Operation: как вызвать удалённую операцию,
// какой текст показать в индикаторе и какие ошибки распознавать.
// Router выбирает Operation по паре (kind, action).
//
// Операции бывают двух режимов:
//
//	ModeUnary  — один вызов, один результат
//	ModeStream — результаты отдаются через Emitter по мере поступления
//	             (stats, run, exec, pull)
package actions
