// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gpxfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/relabs-tech/gpx_logger/internal/gpx"
)

var (
	// ErrNotAppendable is returned by Open for an existing file that does
	// not end with gpx.ClosingSuffix.
	ErrNotAppendable = errors.New("gpx file does not end with the closing suffix")
	// ErrOverwriteTooLong is returned when a fragment would overwrite more
	// bytes than the file holds.
	ErrOverwriteTooLong = errors.New("overwrite length exceeds file size")
)

// File is a GPX log file that grows one track point at a time. Its content
// always ends with gpx.ClosingSuffix, so it is a complete document between
// appends. A File is owned by one logging session.
type File struct {
	path string
	f    *os.File
	size int64
}

// Open opens the log file at path, creating it with gpx.Header when it does
// not exist yet. existed reports whether a previous session wrote it.
func Open(path, creator, trackName string, now time.Time) (file *File, existed bool, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create gpx directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open gpx file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, fmt.Errorf("failed to stat gpx file: %w", err)
	}

	file = &File{path: path, f: f, size: info.Size()}

	if file.size == 0 {
		if _, err := f.WriteString(gpx.Header(creator, trackName, now)); err != nil {
			f.Close()
			return nil, false, fmt.Errorf("failed to write gpx header: %w", err)
		}
		if err := file.refreshSize(); err != nil {
			f.Close()
			return nil, false, err
		}
		return file, false, nil
	}

	if err := file.checkSuffix(); err != nil {
		f.Close()
		return nil, true, err
	}
	return file, true, nil
}

// AppendTrackPoint replaces the last overwrite bytes of the file with
// fragment. overwrite is normally gpx.OverwriteLength(fragment).
func (f *File) AppendTrackPoint(fragment string, overwrite int) error {
	if int64(overwrite) > f.size || overwrite < 0 {
		return fmt.Errorf("%w: %d > %d", ErrOverwriteTooLong, overwrite, f.size)
	}

	offset := f.size - int64(overwrite)
	n, err := f.f.WriteAt([]byte(fragment), offset)
	if err != nil {
		return fmt.Errorf("failed to write track point: %w", err)
	}

	end := offset + int64(n)
	if end < f.size {
		if err := f.f.Truncate(end); err != nil {
			return fmt.Errorf("failed to truncate gpx file: %w", err)
		}
	}
	f.size = end
	return nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Close flushes and closes the file.
func (f *File) Close() error {
	if err := f.f.Sync(); err != nil {
		f.f.Close()
		return fmt.Errorf("failed to sync gpx file: %w", err)
	}
	return f.f.Close()
}

func (f *File) refreshSize() error {
	info, err := f.f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat gpx file: %w", err)
	}
	f.size = info.Size()
	return nil
}

func (f *File) checkSuffix() error {
	n := int64(len(gpx.ClosingSuffix))
	if f.size < n {
		return fmt.Errorf("%s: %w", f.path, ErrNotAppendable)
	}
	tail := make([]byte, n)
	if _, err := f.f.ReadAt(tail, f.size-n); err != nil && err != io.EOF {
		return fmt.Errorf("failed to read gpx file tail: %w", err)
	}
	if string(tail) != gpx.ClosingSuffix {
		return fmt.Errorf("%s: %w", f.path, ErrNotAppendable)
	}
	return nil
}

// FileName builds the log file path for a session starting at t (UTC).
// perDay groups every session of a day into one file.
func FileName(dir, prefix string, t time.Time, perDay bool) string {
	layout := "20060102150405"
	if perDay {
		layout = "20060102"
	}
	return filepath.Join(dir, prefix+t.UTC().Format(layout)+".gpx")
}
