package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestPointsCommand(t *testing.T) {
	out := run(t, "points", "--balance", "1500", "--volume", "4096", "--deducted", "1")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"balance", "1500", "2"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"volume", "4096", "12"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"total", "13"}, strings.Fields(lines[2]))
}

func TestTiersCommand(t *testing.T) {
	out := run(t, "tiers")
	assert.Contains(t, out, "volume >=")
	assert.Contains(t, out, "2097152")
}
