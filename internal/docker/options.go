package docker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/docker/docker/api/types/filters"
)

// decodeInto раскладывает объект опций в структуру SDK через JSON.
// Имена полей сопоставляются без учёта регистра.
func decodeInto(src any, dst any) error {
	if src == nil {
		return nil
	}
	if m, ok := src.(map[string]any); ok && len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return NewRemoteError(http.StatusBadRequest, fmt.Sprintf("encode options: %v", err))
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return NewRemoteError(http.StatusBadRequest, fmt.Sprintf("invalid options: %v", err))
	}
	return nil
}

// filtersFrom строит filters.Args из options["filters"].
//
//	{"filters": {"label": ["app=web"], "status": "exited"}}
func filtersFrom(options map[string]any) (filters.Args, error) {
	args := filters.NewArgs()
	raw, ok := options["filters"]
	if !ok || raw == nil {
		return args, nil
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return args, NewRemoteError(http.StatusBadRequest, fmt.Sprintf("filters must be an object, got %T", raw))
	}
	for key, val := range m {
		switch v := val.(type) {
		case string:
			args.Add(key, v)
		case []any:
			for _, item := range v {
				args.Add(key, fmt.Sprint(item))
			}
		case []string:
			for _, item := range v {
				args.Add(key, item)
			}
		case bool:
			args.Add(key, fmt.Sprint(v))
		default:
			return args, NewRemoteError(http.StatusBadRequest, fmt.Sprintf("filter %q: unsupported value %T", key, val))
		}
	}
	return args, nil
}

func boolOpt(options map[string]any, key string, def bool) bool {
	switch v := options[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || v == "1"
	case float64:
		return v != 0
	default:
		return def
	}
}

func stringOpt(options map[string]any, key, def string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return def
}

// intOpt читает число; ok = false, если ключа нет.
func intOpt(options map[string]any, key string) (int, bool) {
	switch v := options[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}
