package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var d Duration

	require.NoError(t, json.Unmarshal([]byte(`"5s"`), &d))
	assert.Equal(t, Duration(5*time.Second), d)

	require.NoError(t, json.Unmarshal([]byte(`1500000000`), &d))
	assert.Equal(t, Duration(1500*time.Millisecond), d)

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Equal(t, Duration(0), d)

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("2m")
	require.NoError(t, err)
	assert.Equal(t, Duration(2*time.Minute), d)

	_, err = ParseDuration("whenever")
	require.Error(t, err)
}
