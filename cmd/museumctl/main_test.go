package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestKeys(t *testing.T) {
	out, err := execute(t, "", "keys")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	hashKey, err := hex.DecodeString(strings.TrimPrefix(lines[0], "export ADMIN_SESSION_HASH_KEY="))
	require.NoError(t, err)
	assert.Len(t, hashKey, 64)

	blockKey, err := hex.DecodeString(strings.TrimPrefix(lines[1], "export ADMIN_SESSION_BLOCK_KEY="))
	require.NoError(t, err)
	assert.Len(t, blockKey, 32)
}

func TestHashPassword(t *testing.T) {
	out, err := execute(t, "s3cret\n", "admin", "hash-password", "--cost", "4")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")))

	_, err = execute(t, "\n", "admin", "hash-password")
	assert.ErrorContains(t, err, "password is empty")
}

func TestVenuesValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
venues:
  - id: "1"
    name: National Museum
    capacity: 500
    time_slots: ["10:00 AM", "11:00 AM"]
    pricing: {adult: 150, child: 50, senior: 75, tourist: 300}
`), 0o644))

	out, err := execute(t, "", "venues", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "National Museum")
	assert.Contains(t, out, "1 venues OK")

	_, err = execute(t, "", "venues", "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExportRange(t *testing.T) {
	now := time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)

	from, to, err := exportRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), to)
	assert.Equal(t, time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC), from)

	from, to, err = exportRange("2025-01-01", "2025-01-31", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", from.Format("2006-01-02"))
	assert.Equal(t, "2025-01-31", to.Format("2006-01-02"))

	_, _, err = exportRange("2025-02-01", "2025-01-31", now)
	assert.ErrorContains(t, err, "after")

	_, _, err = exportRange("yesterday", "", now)
	assert.ErrorContains(t, err, "--from")
}
