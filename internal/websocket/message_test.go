package websocket_test

import (
	"encoding/json"
	"testing"

	"github.com/dom/speed-dating/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg, err := websocket.NewMessage(websocket.MessageTypeError, websocket.ErrorPayload{
		Code:    "ROOM_NOT_FOUND",
		Message: "Room does not exist",
	})
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageTypeError, msg.Type)
	assert.NotZero(t, msg.Timestamp)

	var payload websocket.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "ROOM_NOT_FOUND", payload.Code)

	_, err = websocket.NewMessage(websocket.MessageTypeChat, func() {})
	assert.Error(t, err)
}
