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

package artifacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/algorand/go-provenance/util/s3"
)

// S3Store keeps artifacts as objects named by hash in one bucket.
type S3Store struct {
	helper s3.Helper
}

// MakeS3Store wraps an open bucket helper.
func MakeS3Store(helper s3.Helper) *S3Store {
	return &S3Store{helper: helper}
}

func objectKey(hash string) string {
	return "sha256/" + hash
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, hash string, data []byte) error {
	if err := checkContent(hash, data); err != nil {
		return err
	}
	if err := s.helper.UploadObject(ctx, objectKey(hash), data); err != nil {
		return fmt.Errorf("s3 put %s: %w", hash, err)
	}
	return nil
}

// Get implements Store. Downloaded content is re-hashed before it is returned.
func (s *S3Store) Get(ctx context.Context, hash string) ([]byte, error) {
	data, err := s.helper.DownloadObject(ctx, objectKey(hash))
	if errors.Is(err, s3.ErrNoSuchKey) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", hash, err)
	}
	if err := checkContent(hash, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Has implements Store.
func (s *S3Store) Has(ctx context.Context, hash string) (bool, error) {
	return s.helper.HasObject(ctx, objectKey(hash))
}

// Close implements Store.
func (s *S3Store) Close() error {
	return nil
}
