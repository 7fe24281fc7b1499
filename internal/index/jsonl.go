package index

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

// appendLine appends one encoded record to path with O_APPEND and fsyncs.
// If the file ends without a newline (a torn write from a crashed writer),
// a newline is written first so the new record starts on its own line.
func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return &types.IndexWriteError{Op: "open", Path: path, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return &types.IndexWriteError{Op: "stat", Path: path, Err: err}
	}

	buf := make([]byte, 0, len(line)+2)
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			f.Close()
			return &types.IndexWriteError{Op: "read", Path: path, Err: err}
		}
		if last[0] != '\n' {
			buf = append(buf, '\n')
		}
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')

	if _, err := f.Write(buf); err != nil {
		f.Close()
		return &types.IndexWriteError{Op: "append", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &types.IndexWriteError{Op: "sync", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &types.IndexWriteError{Op: "close", Path: path, Err: err}
	}
	return nil
}

// writeJSONL atomically replaces path with records using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []types.IdentifierRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return &types.IndexWriteError{Op: "create temp", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	fail := func(op string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &types.IndexWriteError{Op: op, Path: tmpName, Err: err}
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		// Encode terminates each value with a newline.
		if err := enc.Encode(rec); err != nil {
			return fail("write", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flush", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &types.IndexWriteError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &types.IndexWriteError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// encodeRecord renders a record as a single JSON line without the newline.
func encodeRecord(rec types.IdentifierRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
