// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of go-provenance
//
// go-provenance is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-provenance is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-provenance.  If not, see <https://www.gnu.org/licenses/>.

// Package artifacts stores the bytes of published artifacts, addressed by
// their SHA-256 hex hash.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/util/s3"
)

var (
	// ErrNotFound is returned by Get for an unknown hash.
	ErrNotFound = errors.New("artifacts: not found")
	// ErrHashMismatch is returned by Put when the content does not hash to the given key.
	ErrHashMismatch = errors.New("artifacts: content does not match hash")
)

// Store is a content-addressed artifact store.
type Store interface {
	Put(ctx context.Context, hash string, data []byte) error
	Get(ctx context.Context, hash string) ([]byte, error)
	Has(ctx context.Context, hash string) (bool, error)
	Close() error
}

func checkContent(hash string, data []byte) error {
	if got := transactions.HashArtifact(data); got != hash {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, hash, got)
	}
	return nil
}

// OpenStore returns the S3 store when cfg.ArtifactS3Bucket is set, and a
// pebble store under dataDir otherwise.
func OpenStore(log logging.Logger, cfg config.Local, dataDir string, inMem bool) (Store, error) {
	if cfg.ArtifactS3Bucket != "" {
		helper, err := s3.MakeS3Session(s3.Options{
			Bucket:   cfg.ArtifactS3Bucket,
			Region:   cfg.ArtifactS3Region,
			Endpoint: cfg.ArtifactS3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("artifact store: %w", err)
		}
		log.Infof("artifact store: s3 bucket %s", cfg.ArtifactS3Bucket)
		return MakeS3Store(helper), nil
	}
	dir := filepath.Join(dataDir, "artifacts")
	log.Infof("artifact store: pebble at %s", dir)
	return OpenKVStore(dir, inMem)
}
