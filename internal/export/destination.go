package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// Destination receives a rendered payload. Write returns a human-readable
// location of the written data.
type Destination interface {
	Describe() string
	Write(ctx context.Context, t FileType, payload []byte) (string, error)
}

// WriteError reports a payload that could not be written to a destination.
type WriteError struct {
	Destination string
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write to %s: %v", e.Destination, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// File writes the payload to Path. The write is atomic: data lands in a
// temporary file next to Path and is renamed into place only once complete.
// A Path without an extension gets the file type's extension.
type File struct {
	Path string
	// Unique writes to the first free name among Path, Path-2, Path-3 and so
	// on instead of replacing an existing file.
	Unique bool
}

func (d File) Describe() string {
	return d.Path
}

func (d File) Write(ctx context.Context, t FileType, payload []byte) (string, error) {
	path := strings.TrimSpace(d.Path)
	if path == "" {
		return "", &WriteError{Destination: "file", Err: errors.New("path is empty")}
	}
	if filepath.Ext(path) == "" {
		path += "." + t.Extension()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if d.Unique {
		free, err := freePath(path)
		if err != nil {
			return "", &WriteError{Destination: path, Err: err}
		}
		path = free
	}
	if err := writeFileAtomic(path, payload); err != nil {
		return "", &WriteError{Destination: path, Err: err}
	}
	return path, nil
}

const maxFreePathAttempts = 1000

func freePath(path string) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	candidate := path
	for i := 2; i <= maxFreePathAttempts; i++ {
		_, err := os.Lstat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	return "", fmt.Errorf("no free file name for %s", path)
}

func writeFileAtomic(path string, payload []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Share writes the payload to a generated file name inside Dir, ready to be
// handed to another program. Names follow <process>-<unix seconds>.<ext>,
// with a numeric suffix when that name is taken.
type Share struct {
	Dir     string
	Process string
	Now     func() time.Time
}

func (d Share) Describe() string {
	return "file in " + d.dir()
}

func (d Share) Write(ctx context.Context, t FileType, payload []byte) (string, error) {
	return File{Path: d.Path(t), Unique: true}.Write(ctx, t, payload)
}

// Path returns the preferred file name for type t. Write falls back to a
// suffixed name when it is taken.
func (d Share) Path(t FileType) string {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	process := strings.TrimSpace(d.Process)
	if process == "" {
		process = filepath.Base(os.Args[0])
	}
	name := fmt.Sprintf("%s-%d.%s", process, now().Unix(), t.Extension())
	return filepath.Join(d.dir(), name)
}

func (d Share) dir() string {
	if strings.TrimSpace(d.Dir) == "" {
		return os.TempDir()
	}
	return d.Dir
}

// Clipboard places the payload on the system clipboard.
type Clipboard struct {
	// WriteAll replaces the system clipboard writer in tests.
	WriteAll func(text string) error
}

func (d Clipboard) Describe() string {
	return "clipboard"
}

func (d Clipboard) Write(ctx context.Context, _ FileType, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	write := clipboard.WriteAll
	if d.WriteAll != nil {
		write = d.WriteAll
	}
	if err := write(string(payload)); err != nil {
		return "", &WriteError{Destination: "clipboard", Err: err}
	}
	return "clipboard", nil
}
