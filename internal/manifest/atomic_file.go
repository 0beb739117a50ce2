package manifest

import (
	"bytes"
	"os"
	"path/filepath"

	natomic "github.com/natefinch/atomic"

	"github.com/cockroachdb/errors"
)

// atomicRewrite writes content to path via a temp-file-then-rename, then
// fsyncs the parent directory so the rename itself is durable on POSIX
// (spec §4.6 "Atomic rewrite recipe"). natefinch/atomic.WriteFile handles
// the temp file + fsync + rename; the directory fsync is done separately,
// mirroring the fsyncDir step of a plain write-temp-then-rename helper.
func atomicRewrite(path string, content []byte) error {
	if err := natomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return errors.Wrap(err, "value-log: atomic rewrite")
	}
	return fsyncDir(filepath.Dir(path))
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return errors.Wrap(err, "value-log: open directory for fsync")
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "value-log: fsync directory")
	}
	return nil
}
