package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls []string
}

func (r *recordingRunner) record(call string) error {
	r.calls = append(r.calls, call)

	return nil
}

func (r *recordingRunner) Up() error      { return r.record("up") }
func (r *recordingRunner) Down() error    { return r.record("down") }
func (r *recordingRunner) Status() error  { return r.record("status") }
func (r *recordingRunner) Version() error { return r.record("version") }
func (r *recordingRunner) Drop() error    { return r.record("drop") }
func (r *recordingRunner) Close() error   { return nil }

func TestExecuteCommand(t *testing.T) {
	yes := func(string) bool { return true }
	no := func(string) bool { return false }

	for _, command := range []string{"up", "down", "status", "version", "drop"} {
		runner := &recordingRunner{}
		require.NoError(t, executeCommand(command, runner, yes))
		assert.Equal(t, []string{command}, runner.calls)
	}

	runner := &recordingRunner{}
	require.NoError(t, executeCommand("drop", runner, no))
	assert.Empty(t, runner.calls, "drop needs confirmation")

	err := executeCommand("sideways", runner, yes)
	require.ErrorIs(t, err, errUnknownCommand)
	assert.Contains(t, err.Error(), "sideways")
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer

	assert.True(t, confirm(strings.NewReader("y\n"), &out, false)("drop? "))
	assert.Equal(t, "drop? ", out.String())

	assert.False(t, confirm(strings.NewReader("\n"), &out, false)("drop? "))
	assert.False(t, confirm(strings.NewReader("yes\n"), &out, false)("drop? "))
	assert.True(t, confirm(strings.NewReader(""), &out, true)("drop? "))
}

func TestPrintUsage(t *testing.T) {
	var out bytes.Buffer
	printUsage(&out)

	assert.Contains(t, out.String(), "migrator v"+version)
	assert.Contains(t, out.String(), "MIGRATIONS_PATH")
}
