package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northlakelabs/weather-oracle/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	actual := 80.6
	errF := 0.9
	record := domain.PredictionRecord{
		ID:            "rec-1",
		City:          "NYC",
		Date:          "2026-07-15",
		CreatedAt:     time.Date(2026, 7, 15, 18, 0, 0, 0, time.UTC),
		ForecastHigh:  80,
		PredictedMean: 79.7,
		ActualHigh:    &actual,
		Resolved:      true,
		Error:         &errF,
	}

	msg, err := serializeToMessage(record)
	require.NoError(t, err)

	assert.Equal(t, []byte("NYC"), msg.Key)
	assert.Contains(t, string(msg.Value), `"city":"NYC"`)
	assert.Contains(t, string(msg.Value), `"actualHigh":80.6`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "record_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("rec-1"), msg.Headers[0].Value)
	assert.Equal(t, "date", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-07-15"), msg.Headers[1].Value)
}

func TestPublishOutcomesEmptyIsNoop(t *testing.T) {
	w := &Writer{}
	require.NoError(t, w.PublishOutcomes(context.Background(), nil))
}
