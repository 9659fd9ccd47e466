package dfsapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt64AcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Int64
		wantErr bool
	}{
		{name: "string", input: `"1024"`, want: 1024},
		{name: "number", input: `42`, want: 42},
		{name: "empty string", input: `""`, want: 0},
		{name: "null", input: `null`, want: 0},
		{name: "garbage", input: `"12a"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Int64
			err := json.Unmarshal([]byte(tt.input), &n)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestUnixTime(t *testing.T) {
	var payload struct {
		Created UnixTime `json:"creation_time"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"creation_time":"1650000000"}`), &payload))
	assert.Equal(t, time.Unix(1650000000, 0).UTC(), payload.Created.Time)

	out, err := json.Marshal(payload.Created)
	require.NoError(t, err)
	assert.JSONEq(t, `"1650000000"`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"creation_time":"yesterday"}`), &payload))
}

func TestBase64JSON(t *testing.T) {
	encoded, err := EncodeBase64JSON(map[string]any{"id": "x", "n": 3})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, DecodeBase64JSON(encoded, &doc))
	assert.Equal(t, "x", doc["id"])
	assert.EqualValues(t, 3, doc["n"])

	assert.Error(t, DecodeBase64JSON("%%%", &doc))
}
