package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func environValue(t *testing.T, environ []string, key string) (string, bool) {
	t.Helper()

	for _, entry := range environ {
		if value, ok := strings.CutPrefix(entry, key+"="); ok {
			return value, true
		}
	}

	return "", false
}

func TestSettings_Environ_RendersOptions(t *testing.T) {
	settings := Default()
	settings.OIDCClientID = "agent-client"
	settings.OIDCClientSecret = "super-secret"

	environ := settings.Environ([]string{"PATH=/usr/bin", "HOME=/home/slurm"}, "/opt/jobbergate-agent")

	value, ok := environValue(t, environ, "JOBBERGATE_AGENT_BASE_API_URL")
	require.True(t, ok)
	assert.Equal(t, "https://apis.vantagecompute.ai", value)

	value, ok = environValue(t, environ, "JOBBERGATE_AGENT_OIDC_CLIENT_SECRET")
	require.True(t, ok)
	assert.Equal(t, "super-secret", value)

	value, ok = environValue(t, environ, "JOBBERGATE_AGENT_TASK_JOBS_INTERVAL_SECONDS")
	require.True(t, ok)
	assert.Equal(t, "30", value)

	value, ok = environValue(t, environ, "JOBBERGATE_AGENT_WRITE_SUBMISSION_FILES")
	require.True(t, ok)
	assert.Equal(t, "false", value)

	// the base environment is preserved
	value, ok = environValue(t, environ, "HOME")
	require.True(t, ok)
	assert.Equal(t, "/home/slurm", value)
}

func TestSettings_Environ_SkipsUnsetOptionalValues(t *testing.T) {
	settings := Default()

	environ := settings.Environ(nil, "/opt/jobbergate-agent")

	_, ok := environValue(t, environ, "JOBBERGATE_AGENT_INFLUX_DSN")
	assert.False(t, ok)

	_, ok = environValue(t, environ, "JOBBERGATE_AGENT_INFLUX_UDP_PORT")
	assert.False(t, ok)

	_, ok = environValue(t, environ, "JOBBERGATE_AGENT_INFLUX_TIMEOUT")
	assert.False(t, ok)

	_, ok = environValue(t, environ, "JOBBERGATE_AGENT_SLURM_USER_MAPPER")
	assert.False(t, ok)
}

func TestSettings_Environ_DropsStaleAgentVariables(t *testing.T) {
	settings := Default()

	environ := settings.Environ([]string{
		"JOBBERGATE_AGENT_BASE_API_URL=https://stale.example.com",
		"JOBBERGATE_AGENT_EXECUTABLE=/opt/agent/bin/jobbergate-agent",
	}, "/opt/jobbergate-agent")

	value, ok := environValue(t, environ, "JOBBERGATE_AGENT_BASE_API_URL")
	require.True(t, ok)
	assert.Equal(t, "https://apis.vantagecompute.ai", value)

	_, ok = environValue(t, environ, "JOBBERGATE_AGENT_EXECUTABLE")
	assert.False(t, ok)
}

func TestSettings_Environ_AugmentsLibraryPath(t *testing.T) {
	settings := Default()

	t.Run("without existing value", func(t *testing.T) {
		environ := settings.Environ(nil, "/opt/jobbergate-agent")

		value, ok := environValue(t, environ, "LD_LIBRARY_PATH")
		require.True(t, ok)
		assert.Equal(t, "/opt/jobbergate-agent/lib", value)
	})

	t.Run("prepends to existing value", func(t *testing.T) {
		environ := settings.Environ([]string{"LD_LIBRARY_PATH=/usr/local/lib"}, "/opt/jobbergate-agent")

		value, ok := environValue(t, environ, "LD_LIBRARY_PATH")
		require.True(t, ok)
		assert.Equal(t, "/opt/jobbergate-agent/lib:/usr/local/lib", value)
	})
}
