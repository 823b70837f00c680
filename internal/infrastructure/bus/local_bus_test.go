package bus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBus_FansOutToSubscribers(t *testing.T) {
	b := NewLocalBus()
	defer b.Close()

	var first, second []Delivery
	require.NoError(t, b.Subscribe(context.Background(), func(d Delivery) { first = append(first, d) }))
	require.NoError(t, b.Subscribe(context.Background(), func(d Delivery) { second = append(second, d) }))

	d := Delivery{Origin: "node-a", UserID: "u1", Frame: json.RawMessage(`{"type":"pong"}`)}
	require.NoError(t, b.Publish(context.Background(), d))

	assert.Equal(t, []Delivery{d}, first)
	assert.Equal(t, []Delivery{d}, second)

	require.NoError(t, b.Close())
	require.NoError(t, b.Publish(context.Background(), d))
	assert.Len(t, first, 1)
}

func TestDelivery_JSONRoundTripKeepsFrame(t *testing.T) {
	d := Delivery{Origin: "node-a", UserID: "u1", Frame: json.RawMessage(`{"type":"receive_message","data":{"id":"m1"}}`)}

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var out Delivery
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.JSONEq(t, string(d.Frame), string(out.Frame))
	assert.Equal(t, "u1", out.UserID)
}
