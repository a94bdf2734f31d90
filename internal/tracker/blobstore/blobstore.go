// Package blobstore is a content-addressed, zstd-compressed file store.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrNotFound is returned when no blob exists for an ID.
var ErrNotFound = errors.New("blob not found")

// Blobstore keeps blobs under dir/<first two hex chars>/<sha256>.
// The ID is the hash of the uncompressed content; files hold the zstd frame.
// Safe for concurrent use.
type Blobstore struct {
	dir string
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates dir if needed and returns a store rooted there.
func New(dir string) (*Blobstore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blobs directory: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Blobstore{dir: dir, enc: enc, dec: dec}, nil
}

// Put stores data and returns its ID. Existing blobs are not rewritten.
func (b *Blobstore) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	path := b.path(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}
	if err := AtomicWriteFile(path, b.enc.EncodeAll(data, nil), 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return id, nil
}

// Get returns the decompressed content of id after verifying its hash.
func (b *Blobstore) Get(id string) ([]byte, error) {
	raw, err := os.ReadFile(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	data, err := b.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress blob %s: %w", id, err)
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != id {
		return nil, fmt.Errorf("blob integrity check failed: expected %s, got %s", id, got)
	}
	return data, nil
}

// Exists reports whether a blob is stored under id.
func (b *Blobstore) Exists(id string) bool {
	_, err := os.Stat(b.path(id))
	return err == nil
}

// Delete removes a blob. Missing blobs are not an error.
func (b *Blobstore) Delete(id string) error {
	if err := os.Remove(b.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Close releases the codec resources.
func (b *Blobstore) Close() error {
	b.dec.Close()
	return b.enc.Close()
}

func (b *Blobstore) path(id string) string {
	// IDs are hex; anything else never maps onto a stored file.
	if len(id) < 2 || strings.ContainsAny(id, `/\.`) {
		return filepath.Join(b.dir, "__invalid__", "_"+hex.EncodeToString([]byte(id)))
	}
	return filepath.Join(b.dir, id[:2], id)
}

// AtomicWriteFile writes data to a temp file in the target directory, syncs
// it and renames it over path.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	if strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("invalid path %q", path)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
