package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `backend:
  provider: groq
  model: llama-3.3-70b-versatile
  timeout: 30s
critique:
  strategy: remote
  max_tokens: 150
  temperature: 0.6
consensus:
  strategy: mock
  include_critiques: true
battle:
  rounds: 3
  shuffle: true
  pacing: 200ms
server:
  port: 3000
  allowed_origins:
    - http://localhost:5173
  session_ttl: 30m
logging:
  session_log: true
  dir: .arena/logs
`

const invalidConfigYAML = `backend:
  provider: bard
critique:
  temperature: 4
battle:
  rounds: 0
  pacing: soon
server:
  port: "eighty"
colour: green
`

func TestValidateConfigBytes_Valid(t *testing.T) {
	errs := ValidateConfigBytes([]byte(validConfigYAML))
	require.Empty(t, errs, "valid config should have no errors")
}

func TestValidateConfigBytes_Empty(t *testing.T) {
	require.Empty(t, ValidateConfigBytes(nil))
	require.Empty(t, ValidateConfigBytes([]byte("# nothing yet\n")))
}

func TestValidateConfigBytes_Invalid(t *testing.T) {
	errs := ValidateConfigBytes([]byte(invalidConfigYAML))
	require.NotEmpty(t, errs)

	joined := strings.Join(errs, "\n")
	for _, loc := range []string{"/backend/provider", "/critique/temperature", "/battle/rounds", "/battle/pacing", "/server/port"} {
		assert.Contains(t, joined, loc)
	}
	assert.Contains(t, joined, "colour", "unknown top-level keys are reported")
}

func TestValidateConfigBytes_BadYAML(t *testing.T) {
	errs := ValidateConfigBytes([]byte("battle: [unclosed"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "YAML parse error")
}

func TestValidateConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfigYAML), 0o644))

	errs, err := ValidateConfigFile(path)
	require.NoError(t, err)
	assert.Empty(t, errs)

	_, err = ValidateConfigFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
