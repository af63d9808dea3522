package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add staging index", "add_staging_index"},
		{"Add-Staging-Index", "add_staging_index"},
		{"ADD__STAGING__INDEX", "add_staging_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading and trailing_", "leading_and_trailing"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"000001_init.up.sql", "000001_init.down.sql", "000007_late.up.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("--"), 0o644))
	}

	mf, err := CreateMigration(dir, "Add tracking URL")
	require.NoError(t, err)
	assert.Equal(t, uint(8), mf.Version)
	assert.Equal(t, filepath.Join(dir, "000008_add_tracking_url.up.sql"), mf.UpPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(up), "-- add_tracking_url"))
	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback of add_tracking_url")

	_, err = CreateMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sql")
	mf, err := CreateMigration(dir, "first")
	require.NoError(t, err)
	assert.Equal(t, uint(1), mf.Version)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {Data: []byte("--")},
		"000002_b.down.sql": {Data: []byte("--")},
		"000001_a.up.sql":   {Data: []byte("--")},
		"README.md":         {Data: []byte("x")},
		"dir.up.sql/x":      {Data: []byte("x")},
	}
	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a", "000002_b"}, names)

	names, err = ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := Embedded()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_create_fulfillment_schema",
		"000002_create_time_entries",
		"000003_create_outbox_events",
	}, names)

	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	for _, n := range names {
		_, err := embedded.ReadFile("sql/" + n + ".down.sql")
		assert.NoError(t, err, "%s has no down migration", n)
	}
}
