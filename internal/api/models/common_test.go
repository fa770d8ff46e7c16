package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbontrack/carbontrack/internal/api/models"
)

func TestRawValue_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.RawValue
	}{
		{"string", `{"value":"2"}`, "2"},
		{"string kept verbatim", `{"value":" 12abc "}`, " 12abc "},
		{"empty string", `{"value":""}`, ""},
		{"integer", `{"value":10}`, "10"},
		{"decimal literal kept", `{"value":2.50}`, "2.50"},
		{"negative", `{"value":-3}`, "-3"},
		{"null", `{"value":null}`, ""},
		{"missing", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req models.ValueRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, req.Value)
		})
	}
}

func TestRawValue_RejectsOtherTypes(t *testing.T) {
	for _, body := range []string{`{"value":true}`, `{"value":[1]}`, `{"value":{"v":1}}`} {
		var req models.ValueRequest
		assert.Error(t, json.Unmarshal([]byte(body), &req), body)
	}
}

func TestTimestamp_RoundTrip(t *testing.T) {
	ts := models.Timestamp(time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-10-18T09:30:00Z"`, string(data))

	var parsed models.Timestamp
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.True(t, ts.Time().Equal(parsed.Time()))
}

func TestTimestamp_MarshalsUTC(t *testing.T) {
	ts := models.Timestamp(time.Date(2026, 10, 18, 11, 30, 15, 500, time.FixedZone("CEST", 2*60*60)))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-10-18T09:30:15Z"`, string(data))
}
