package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event, err := NewEvent("promo.coupon.redeemed", "SUMMER2024", "coupon", "promo-engine", map[string]string{"code": "SUMMER2024"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "promo.coupon.redeemed", event.EventType)
	assert.Equal(t, "SUMMER2024", event.AggregateID)
	assert.Equal(t, "coupon", event.AggregateType)
	assert.Equal(t, "promo-engine", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.False(t, event.Timestamp.IsZero())
	assert.Empty(t, event.CorrelationID)
}

func TestEventWithCorrelationID(t *testing.T) {
	event, err := NewEvent("promo.coupon.released", "WINTER10", "coupon", "promo-engine", nil)
	require.NoError(t, err)

	event.WithCorrelationID("req-123")
	assert.Equal(t, "req-123", event.CorrelationID)

	data, err := event.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "req-123", decoded["correlation_id"])
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("promo.coupon.redeemed", "X", "coupon", "promo-engine", make(chan int))
	assert.Error(t, err)
}
