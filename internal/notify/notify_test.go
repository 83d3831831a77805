package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/outcome"
)

func request(id string) *domain.ActionRequest {
	return &domain.ActionRequest{Kind: domain.ResourceContainer, ResourceID: id, Action: "inspect"}
}

func TestResult_Success(t *testing.T) {
	msg := domain.Message{"_msgid": "m1", "topic": "t"}
	value := map[string]any{"State": "running"}

	res := New().Result(request("abc"), "started", outcome.ContainerHandle(), msg,
		outcome.Classify(outcome.ContainerHandle(), value, nil))

	require.NotNil(t, res.Outbound)
	assert.Equal(t, value, res.Outbound.Payload())
	assert.Equal(t, "t", res.Outbound["topic"])
	assert.Equal(t, "m1", res.Outbound.ID())
	assert.Equal(t, domain.StatusUpdate{Fill: "green", Shape: "dot", Text: "abc started"}, res.Status)
	assert.True(t, res.Log.IsEmpty())

	// Исходное сообщение не меняется.
	_, hasPayload := msg["payload"]
	assert.False(t, hasPayload)
}

func TestResult_AlreadyInState(t *testing.T) {
	err := docker.NewRemoteError(304, "not modified")
	policy := outcome.ConfigRemove()
	req := &domain.ActionRequest{Kind: domain.ResourceConfig, ResourceID: "cfg", Action: "remove"}

	res := New().Result(req, "remove", policy, domain.Message{}, outcome.Classify(policy, nil, err))

	require.NotNil(t, res.Outbound)
	assert.Equal(t, err, res.Outbound.Payload())
	assert.Equal(t, "ok", res.Status.Level())
	assert.Equal(t, "cfg remove", res.Status.Text)
	assert.Equal(t, domain.LogLevelWarn, res.Log.Level)
	assert.Contains(t, res.Log.Text, "already removed")
}

func TestResult_ClassifiedFailures(t *testing.T) {
	for _, code := range []int{404, 500} {
		err := docker.NewRemoteError(code, "boom")
		policy := outcome.ContainerHandle()

		res := New().Result(request("abc"), "started", policy, domain.Message{}, outcome.Classify(policy, nil, err))

		require.NotNil(t, res.Outbound, "code %d", code)
		assert.Equal(t, err, res.Outbound.Payload())
		assert.Equal(t, domain.LogLevelError, res.Log.Level)
		assert.Contains(t, res.Log.Text, "abc")
		assert.Equal(t, domain.StatusFillRed, res.Status.Fill)
	}
}

func TestResult_UnknownErrorSuppressesPayload(t *testing.T) {
	policy := outcome.ContainerHandle()
	res := New().Result(request("abc"), "started", policy, domain.Message{},
		outcome.Classify(policy, nil, errors.New("socket closed")))

	assert.Nil(t, res.Outbound)
	assert.Equal(t, domain.LogLevelError, res.Log.Level)
	assert.Contains(t, res.Log.Text, "socket closed")
	assert.Equal(t, "abc error", res.Status.Text)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "abc started", Label("abc", "started"))
	assert.Equal(t, "started", Label("", "started"))
}

func TestStreamStates(t *testing.T) {
	assert.Equal(t, "connected", Connected().Status.Text)

	closed := Closed("abc")
	assert.Equal(t, "disconnected", closed.Status.Text)
	assert.Equal(t, domain.LogLevelWarn, closed.Log.Level)

	ended := Ended("abc")
	assert.Equal(t, domain.StatusFillYellow, ended.Status.Fill)
	assert.Equal(t, "stream ended", ended.Status.Text)

	errored := Errored("abc", errors.New("reset"))
	assert.Equal(t, domain.LogLevelError, errored.Log.Level)
	assert.Equal(t, domain.StatusShapeRing, errored.Status.Shape)
}

func TestFrame(t *testing.T) {
	event := map[string]any{"read": "2024-01-01", "Type": "container"}
	first := Frame(event)
	second := Frame(event)

	assert.Equal(t, event, first.Payload())
	assert.Equal(t, "container", first["type"])
	assert.NotEmpty(t, first.ID())
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestFatal(t *testing.T) {
	res := Fatal(errors.New("unknown action"))
	assert.Nil(t, res.Outbound)
	assert.True(t, res.Status.IsClear())
	assert.Equal(t, domain.LogLevelError, res.Log.Level)
}
