// Copyright 2026 The TachyonFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package journal

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cubefs/cubefs/blobstore/util/errors"
)

type entry struct {
	typ     RecordType
	payload interface{}
}

// writer appends framed records to the log with flush-on-commit
// semantics: every append hits the disk before returning.
type writer struct {
	path string

	mu sync.Mutex
	f  *os.File
}

func newWriter(path string) *writer {
	return &writer{path: path}
}

func (w *writer) open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.openLocked(os.O_CREATE | os.O_WRONLY | os.O_APPEND)
}

func (w *writer) openLocked(flag int) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, flag, 0o644)
	if err != nil {
		return err
	}
	w.f = f
	return nil
}

// append frames the entries, bracketing multi-record groups with
// transaction markers, writes them in one syscall and fsyncs.
func (w *writer) append(entries []entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return errors.New("journal: writer not open")
	}

	var buf []byte
	if len(entries) > 1 {
		rec, err := encodeRecord(RecordTxBegin, nil)
		if err != nil {
			return err
		}
		buf = append(buf, rec...)
	}
	for _, e := range entries {
		rec, err := encodeRecord(e.typ, e.payload)
		if err != nil {
			return err
		}
		buf = append(buf, rec...)
	}
	if len(entries) > 1 {
		rec, err := encodeRecord(RecordTxCommit, nil)
		if err != nil {
			return err
		}
		buf = append(buf, rec...)
	}

	if _, err := w.f.Write(buf); err != nil {
		return err
	}
	return w.f.Sync()
}

// reset discards the log after a successful checkpoint and reopens it
// empty.
func (w *writer) reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return w.openLocked(os.O_CREATE | os.O_TRUNC | os.O_WRONLY)
}

func (w *writer) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func writeEntry(f io.Writer, e entry) error {
	rec, err := encodeRecord(e.typ, e.payload)
	if err != nil {
		return err
	}
	_, err = f.Write(rec)
	return err
}
