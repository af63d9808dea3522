package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestListEmbedded(t *testing.T) {
	out, err := run(t, "list")

	require.NoError(t, err)
	assert.Contains(t, out, "000001_create_fulfillment_schema")
	assert.Contains(t, out, "000003_create_outbox_events")
}

func TestCreateThenListDirectory(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "--path", dir, "create", "add_carrier")
	require.NoError(t, err)
	assert.Contains(t, out, "created 000001")

	_, err = os.Stat(filepath.Join(dir, "000001_add_carrier.up.sql"))
	require.NoError(t, err)

	out, err = run(t, "--path", dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "000001_add_carrier")
}

func TestListEmptyDirectory(t *testing.T) {
	out, err := run(t, "--path", t.TempDir(), "list")

	require.NoError(t, err)
	assert.Contains(t, out, "no migrations found")
}

func TestStepRejectsNonNumber(t *testing.T) {
	_, err := run(t, "step", "many")

	assert.ErrorContains(t, err, "invalid step count")
}
