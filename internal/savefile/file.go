package savefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// chmod is swapped in tests.
var chmod = os.Chmod

// WriteFile stores doc at path. The previous file stays intact until the new
// content is fully on disk.
func WriteFile(path string, doc Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := chmod(tmpPath, 0644); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// ReadFile loads and decodes a card box. Every failure, including a missing
// file, is reported as *ParseError.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, &ParseError{Path: path, Err: err}
	}
	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return Document{}, err
	}
	return doc, nil
}

// Picker asks the user for a file. ok is false when the user cancelled.
type Picker interface {
	Pick(ctx context.Context) (path string, ok bool, err error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context) (string, bool, error)

func (f PickerFunc) Pick(ctx context.Context) (string, bool, error) { return f(ctx) }

// Loaded is a decoded document together with where it came from.
type Loaded struct {
	Path     string
	Document Document
}

// Open lets the user pick a file and decodes it. A cancelled pick returns
// (nil, nil).
func Open(ctx context.Context, p Picker) (*Loaded, error) {
	path, ok, err := p.Pick(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || path == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Loaded{Path: path, Document: doc}, nil
}
