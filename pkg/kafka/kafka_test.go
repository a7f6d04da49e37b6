package kafka

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type docEvent struct {
	Type string `json:"type"`
	ID   string `json:"documentId"`
}

func TestDecodeJSON(t *testing.T) {
	ev, err := DecodeJSON[docEvent]([]byte(`{"type":"saved","documentId":"note-1"}`))
	require.NoError(t, err)
	assert.Equal(t, docEvent{Type: "saved", ID: "note-1"}, ev)

	_, err = DecodeJSON[docEvent]([]byte(`{not json`))
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestPermanentUnwraps(t *testing.T) {
	base := errors.New("bad payload")
	err := fmt.Errorf("handling: %w", Permanent(base))
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(base))
}

func TestEncode(t *testing.T) {
	msg, err := encode(Event{Key: "note-1", Value: docEvent{Type: "deleted", ID: "note-1"}})
	require.NoError(t, err)
	assert.Equal(t, "note-1", string(msg.Key))
	assert.JSONEq(t, `{"type":"deleted","documentId":"note-1"}`, string(msg.Value))
}
