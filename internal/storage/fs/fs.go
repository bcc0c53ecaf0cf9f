// Package fs implements the upload backend on the local filesystem. It is
// the default media destination for single-node deployments.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quill-chat/quill/internal/upload"
)

type Storage struct {
	rootPath  string
	chunkSize int
}

// Ensure Storage implements the backend interface at compile time.
var _ upload.Backend = (*Storage)(nil)

func New(rootPath string, chunkSize int) (*Storage, error) {
	// Use filepath.Clean to prevent path traversal issues like "media/../"
	p := filepath.Clean(rootPath)

	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage directory %s: %w", p, err)
	}

	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	return &Storage{rootPath: p, chunkSize: chunkSize}, nil
}

type transfer struct {
	events   chan upload.ProgressEvent
	err      error
	relPath  string
	fullPath string
}

func (t *transfer) Progress() <-chan upload.ProgressEvent { return t.events }
func (t *transfer) Err() error                            { return t.err }

// StartTransfer writes data to path under the storage root, reporting
// progress after every chunk. Cancelling the context aborts the write and
// removes the partial file.
func (s *Storage) StartTransfer(ctx context.Context, path string, data []byte, meta upload.Metadata) (upload.Transfer, error) {
	relPath := filepath.Clean(path)
	fullPath := filepath.Join(s.rootPath, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create subdirectories: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	t := &transfer{
		events:   make(chan upload.ProgressEvent, 1),
		relPath:  relPath,
		fullPath: fullPath,
	}
	go t.run(ctx, dst, data, s.chunkSize)
	return t, nil
}

func (t *transfer) run(ctx context.Context, dst *os.File, data []byte, chunkSize int) {
	defer close(t.events)

	total := int64(len(data))
	var written int64

	for written < total {
		if err := ctx.Err(); err != nil {
			t.abort(dst, err)
			return
		}

		end := written + int64(chunkSize)
		if end > total {
			end = total
		}
		n, err := dst.Write(data[written:end])
		written += int64(n)
		if err != nil {
			t.abort(dst, fmt.Errorf("failed to write file data: %w", err))
			return
		}

		t.emit(ctx, upload.ProgressEvent{BytesTransferred: written, TotalBytes: total})
	}

	if total == 0 {
		t.emit(ctx, upload.ProgressEvent{BytesTransferred: 0, TotalBytes: 0})
	}

	if err := dst.Close(); err != nil {
		t.err = fmt.Errorf("failed to close destination file: %w", err)
		os.Remove(t.fullPath)
	}
}

// emit delivers a progress event unless the transfer is being cancelled.
func (t *transfer) emit(ctx context.Context, ev upload.ProgressEvent) {
	select {
	case t.events <- ev:
	case <-ctx.Done():
	}
}

// abort records the failure and cleans up the partial file. Best effort on
// the removal, same as the media store this replaces.
func (t *transfer) abort(dst *os.File, err error) {
	t.err = err
	dst.Close()
	os.Remove(t.fullPath)
}

// LocationRef resolves a finished transfer to its path relative to the
// storage root.
func (s *Storage) LocationRef(_ context.Context, t upload.Transfer) (string, error) {
	ft, ok := t.(*transfer)
	if !ok {
		return "", fmt.Errorf("transfer was not started by this backend")
	}
	if ft.err != nil {
		return "", fmt.Errorf("transfer did not complete: %w", ft.err)
	}
	return ft.relPath, nil
}
