package mq

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/dockflow/internal/domain"
)

func TestParsePayload_RoundTripThroughJSON(t *testing.T) {
	nodeID, dispatchID := uuid.New(), uuid.New()
	env := newEnvelope(MessageTypeNodeOutput, NodeOutputPayload{
		NodeID:     nodeID,
		DispatchID: dispatchID,
		Message:    domain.Message{"_msgid": "m1", "payload": "hi"},
	})

	body, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, MessageTypeNodeOutput, decoded.Type)

	payload, err := ParsePayload[NodeOutputPayload](&decoded)
	require.NoError(t, err)
	assert.Equal(t, nodeID, payload.NodeID)
	assert.Equal(t, dispatchID, payload.DispatchID)
	assert.Equal(t, "hi", payload.Message.Payload())
}

func TestParsePayload_InvalidIsPermanent(t *testing.T) {
	env := &Envelope{Payload: map[string]any{"node_id": "not-a-uuid"}}

	_, err := ParsePayload[NodeInputPayload](env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPermanent))
}

func TestTopology_EveryQueueIsBound(t *testing.T) {
	declared := map[Queue]bool{}
	for _, q := range queues() {
		declared[q.name] = true
	}
	exchangeNames := map[Exchange]bool{}
	for _, ex := range exchanges() {
		exchangeNames[ex.name] = true
	}

	for _, b := range bindings() {
		assert.True(t, declared[b.queue], "queue %s", b.queue)
		assert.True(t, exchangeNames[b.exchange], "exchange %s", b.exchange)
	}
	assert.Len(t, bindings(), len(queues()))
}

func TestTopologyInfo(t *testing.T) {
	info := TopologyInfo()
	for _, name := range []string{string(QueueNodesInput), string(QueueNodesOutput), string(ExchangeStatus)} {
		assert.True(t, strings.Contains(info, name), name)
	}
}

func TestURLFromEnv(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")
	assert.Equal(t, "amqp://u:p@mq:5672/", URLFromEnv())

	t.Setenv("RABBITMQ_URL", "")
	assert.Contains(t, URLFromEnv(), "localhost")
}
