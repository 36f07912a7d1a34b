package acceptance

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	output, err := devenv(t, t.TempDir(), nil, "version").Output()
	require.NoError(t, err, "Failed to execute version command")

	var info map[string]string
	require.NoError(t, json.Unmarshal(output, &info), "version output should be JSON: %s", output)
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "gitCommit")
	assert.Contains(t, info, "goVersion")
}

func TestVersionCommandHelp(t *testing.T) {
	output, err := devenv(t, t.TempDir(), nil, "version", "--help").CombinedOutput()
	require.NoError(t, err, "Failed to execute version --help")
	assert.Contains(t, strings.ToLower(string(output)), "usage")
}
