package vlog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	vlog "github.com/fjall-rs/value-log"
)

func TestIsInvalidVersionOnCorruptedMarker(t *testing.T) {
	dir := t.TempDir()
	_, err := vlog.Open(dir, vlog.NewConfig())
	require.NoError(t, err)

	markerPath := filepath.Join(dir, ".vlog")
	require.NoError(t, os.WriteFile(markerPath, []byte("VLG\x09"), 0o644))

	_, err = vlog.Open(dir, vlog.NewConfig())
	require.Error(t, err)
	require.True(t, vlog.IsInvalidVersion(err))
}

func TestIsUnrecoverableFalseForUnrelatedError(t *testing.T) {
	require.False(t, vlog.IsUnrecoverable(assertErr{}))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
