package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferMessageRoundTrip(t *testing.T) {
	msg := TransferMessage{
		SchemaVersion: SchemaVersionV1,
		MessageID:     "msg-1",
		SourceDomain:  "domain-a",
		DestDomain:    "domain-b",
		Sender:        "alice",
		Receiver:      "bob",
		DestToken:     "token-b",
		Amount:        decimal.NewFromInt(60_000),
		AccrualRate:   decimal.New(5, 10),
		SentAt:        time.Unix(1_000_000, 0).UTC(),
	}

	data, err := msg.Encode()
	require.NoError(t, err)

	got, err := DecodeTransferMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg.MessageID, got.MessageID)
	assert.True(t, got.Amount.Equal(msg.Amount))
	assert.True(t, got.AccrualRate.Equal(msg.AccrualRate), "the carried rate must survive the wire")
}

func TestDecodeRejectsUnknownSchemaVersion(t *testing.T) {
	msg := TransferMessage{SchemaVersion: 2, MessageID: "msg-2"}
	data, err := msg.Encode()
	require.NoError(t, err)

	_, err = DecodeTransferMessage(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeTransferMessage([]byte("not json"))
	require.Error(t, err)
}
