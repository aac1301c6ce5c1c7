// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package storage keeps encoded encrypted values addressed by content.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"
)

// Common errors.
var (
	ErrNotFound      = errors.New("value not found")
	ErrStorageFull   = errors.New("storage capacity exceeded")
	ErrInvalidHandle = errors.New("invalid value handle")
	ErrClosed        = errors.New("storage closed")
)

// Handle identifies a stored value: the hex blake3 digest of its encoding.
type Handle string

const handleLen = 64

// ComputeHandle derives the handle of data.
func ComputeHandle(data []byte) Handle {
	sum := blake3.Sum256(data)
	return Handle(hex.EncodeToString(sum[:]))
}

// Validate rejects anything that is not a 64 character lowercase hex digest,
// which also keeps handles safe to use as file names.
func (h Handle) Validate() error {
	if len(h) != handleLen {
		return fmt.Errorf("%w: length %d", ErrInvalidHandle, len(h))
	}
	for _, c := range h {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidHandle, string(h))
		}
	}
	return nil
}

// Storage is a content-addressed blob store.
type Storage interface {
	// Store saves data and returns its handle. Storing the same bytes twice
	// returns the same handle.
	Store(ctx context.Context, data []byte) (Handle, error)
	// Load returns the bytes stored under handle.
	Load(ctx context.Context, handle Handle) ([]byte, error)
	// Delete removes a value.
	Delete(ctx context.Context, handle Handle) error
	// Exists reports whether handle is stored.
	Exists(ctx context.Context, handle Handle) (bool, error)
	Close() error
}

// MemoryStorage is a capacity-bounded in-process store.
type MemoryStorage struct {
	mu       sync.RWMutex
	data     map[Handle][]byte
	capacity int64
	size     int64
}

// NewMemoryStorage creates a store holding at most capacityBytes of data.
// A non-positive capacity means unbounded.
func NewMemoryStorage(capacityBytes int64) *MemoryStorage {
	return &MemoryStorage{
		data:     make(map[Handle][]byte),
		capacity: capacityBytes,
	}
}

func (s *MemoryStorage) Store(_ context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return "", ErrClosed
	}
	if _, ok := s.data[handle]; ok {
		return handle, nil
	}
	if s.capacity > 0 && s.size+int64(len(data)) > s.capacity {
		return "", ErrStorageFull
	}

	s.data[handle] = append([]byte(nil), data...)
	s.size += int64(len(data))
	return handle, nil
}

func (s *MemoryStorage) Load(_ context.Context, handle Handle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[handle]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Delete(_ context.Context, handle Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.data[handle]
	if !ok {
		return ErrNotFound
	}
	s.size -= int64(len(data))
	delete(s.data, handle)
	return nil
}

func (s *MemoryStorage) Exists(_ context.Context, handle Handle) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[handle]
	return ok, nil
}

// Size returns the number of stored bytes.
func (s *MemoryStorage) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.size = 0
	return nil
}

// FileStorage keeps one file per value, sharded by the first two handle
// characters.
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates baseDir if needed.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{baseDir: baseDir}, nil
}

func (s *FileStorage) path(handle Handle) (string, error) {
	if err := handle.Validate(); err != nil {
		return "", err
	}
	h := string(handle)
	return filepath.Join(s.baseDir, h[:2], h), nil
}

func (s *FileStorage) Store(_ context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	path, err := s.path(handle)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil {
		return handle, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create shard dir: %w", err)
	}

	// Write to a unique temp file and rename so readers never see a
	// partial value.
	tmp, err := os.CreateTemp(filepath.Dir(path), handleTempPattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename temp file: %w", err)
	}
	return handle, nil
}

const handleTempPattern = ".store-*.tmp"

func (s *FileStorage) Load(_ context.Context, handle Handle) ([]byte, error) {
	path, err := s.path(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (s *FileStorage) Delete(_ context.Context, handle Handle) error {
	path, err := s.path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *FileStorage) Exists(_ context.Context, handle Handle) (bool, error) {
	path, err := s.path(handle)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat file: %w", err)
}

func (s *FileStorage) Close() error {
	return nil
}
