package eventbus

import (
	"testing"

	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	raw, err := encodeEnvelope(events.TransferFailed{SenderID: 1, ReceiverID: 2, AmountCents: 500, Reason: "insufficient funds"})
	require.NoError(t, err)

	eventType, evt, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, events.EventTypeTransferFailed, eventType)

	failed, ok := evt.(*events.TransferFailed)
	require.True(t, ok)
	assert.Equal(t, int64(500), failed.AmountCents)
	assert.Equal(t, "insufficient funds", failed.Reason)
}

func TestEnvelope_UnknownType(t *testing.T) {
	eventType, evt, err := decodeEnvelope([]byte(`{"type":"Nope.Happened","payload":{}}`))
	require.NoError(t, err)
	assert.Nil(t, evt)
	assert.Equal(t, events.EventType("Nope.Happened"), eventType)
}

func TestEnvelope_Malformed(t *testing.T) {
	_, _, err := decodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "securebank.events.transfer.completed", topicNameFor("", events.EventTypeTransferCompleted))
	assert.Equal(t, "bank.dlq.login.failed", dlqTopicNameFor("bank", events.EventTypeLoginFailed))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, parseBrokers(" k1:9092, ,k2:9092"))
}
