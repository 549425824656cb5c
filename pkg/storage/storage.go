// Package storage is the blob store behind payment proofs. Two disks exist:
// "local" (always) and "s3" (when S3_BUCKET is set). STORAGE_DISK picks the
// default.
//
//	storage.Default().Put(ctx, "proofs/7/1700000000", sealed)
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/pkg/logger"
)

// ErrNotExist is returned by Get for a missing object.
var ErrNotExist = errors.New("storage: object does not exist")

// Disk stores objects under slash separated keys.
type Disk interface {
	Put(ctx context.Context, path string, content []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	// Delete is a no-op for a missing object.
	Delete(ctx context.Context, path string) error
	// AllFiles lists every key below directory, recursively.
	AllFiles(ctx context.Context, directory string) ([]string, error)
	DeleteDirectory(ctx context.Context, directory string) error
	URL(path string) string
}

var (
	mu          sync.RWMutex
	disks       = map[string]Disk{}
	defaultName = "local"
)

// Connect boots the configured disks. A broken S3 configuration is logged
// and the local disk stays available.
func Connect(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	disks["local"] = NewLocal(config.StorageLocalRoot(), config.StorageURL())
	if config.StorageS3Bucket() != "" {
		d, err := NewS3(ctx, S3Options{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			URL:      config.StorageS3URL(),
		})
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			disks["s3"] = d
		}
	}

	name := config.StorageDefault()
	if _, ok := disks[name]; !ok {
		return fmt.Errorf("storage: default disk %q is not configured", name)
	}
	defaultName = name
	return nil
}

func Use(name string) (Disk, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Register installs a disk; with asDefault it also becomes the default.
func Register(name string, d Disk, asDefault bool) {
	mu.Lock()
	defer mu.Unlock()
	disks[name] = d
	if asDefault {
		defaultName = name
	}
}

// Default returns the default disk, booting the local disk if nothing was
// connected.
func Default() Disk {
	mu.RLock()
	d, ok := disks[defaultName]
	mu.RUnlock()
	if ok {
		return d
	}
	local := NewLocal(config.StorageLocalRoot(), config.StorageURL())
	Register("local", local, false)
	return local
}
