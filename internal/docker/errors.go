package docker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/docker/docker/errdefs"
)

// RemoteError — ошибка Docker Engine с HTTP-статусом.
//
// Сериализуется в JSON и уходит во flow как payload,
// чтобы следующие узлы могли ветвиться по statusCode.
type RemoteError struct {
	StatusCode int    `json:"statusCode"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`

	err error
}

// Error реализует интерфейс error.
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("(HTTP code %d) %s", e.StatusCode, e.Reason)
}

// Unwrap возвращает ошибку SDK.
func (e *RemoteError) Unwrap() error {
	return e.err
}

// NewRemoteError создаёт ошибку с известным статусом.
func NewRemoteError(statusCode int, reason string) *RemoteError {
	return &RemoteError{
		StatusCode: statusCode,
		Reason:     reason,
		Message:    fmt.Sprintf("(HTTP code %d) %s", statusCode, reason),
	}
}

// daemonPrefix — префикс, который SDK добавляет к ответу daemon.
const daemonPrefix = "Error response from daemon: "

// wrap превращает ошибку SDK в *RemoteError.
// Статус берётся из ответа daemon, записанного WithStatusCapture;
// без него восстанавливается по классу errdefs.
func wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return err
	}

	reason := strings.TrimPrefix(err.Error(), daemonPrefix)
	code := recordedStatus(ctx)
	if code == 0 {
		code = statusFromErrdefs(err)
	}

	return &RemoteError{
		StatusCode: code,
		Reason:     reason,
		Message:    fmt.Sprintf("(HTTP code %d) %s", code, reason),
		err:        err,
	}
}

// statusFromErrdefs восстанавливает HTTP-статус по классу ошибки.
// 0 — класс не распознан.
func statusFromErrdefs(err error) int {
	switch {
	case errdefs.IsNotModified(err):
		return http.StatusNotModified
	case errdefs.IsInvalidParameter(err):
		return http.StatusBadRequest
	case errdefs.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errdefs.IsForbidden(err):
		return http.StatusForbidden
	case errdefs.IsNotFound(err):
		return http.StatusNotFound
	case errdefs.IsConflict(err):
		return http.StatusConflict
	case errdefs.IsNotImplemented(err):
		return http.StatusNotImplemented
	case errdefs.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errdefs.IsSystem(err):
		return http.StatusInternalServerError
	default:
		return 0
	}
}

// StatusOf возвращает HTTP-статус и текст причины ошибки.
// ok = false, если ошибка не от Docker Engine или статус не распознан.
func StatusOf(err error) (code int, reason string, ok bool) {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return 0, "", false
	}
	return remote.StatusCode, remote.Reason, remote.StatusCode != 0
}
