// Package engine вычисляет выражения узлов и разбирает наборы узлов.
//
//   - property.go — типизированные выражения (str, num, bool, json, msg, env, tmpl)
//   - template.go — text/template с доступом к сообщению ({{ .msg.payload.id }})
//   - parser.go   — набор узлов из YAML/JSON и валидация конфигурации
package engine
