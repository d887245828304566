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

package s3

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/test/partitiontest"
)

func TestMakeS3SessionRequiresCredentials(t *testing.T) {
	partitiontest.PartitionTest(t)

	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	_, err := MakeS3Session(Options{Bucket: "artifacts"})
	require.Error(t, err)

	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "key")
	_, err = MakeS3Session(Options{})
	require.Error(t, err)

	_, err = MakeS3Session(Options{Bucket: "artifacts"})
	require.NoError(t, err)
}

func TestHelperRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)

	srv := NewFakeServer(t, "artifacts")
	helper, err := MakeS3Session(Options{
		Bucket:      "artifacts",
		Endpoint:    srv.URL,
		Credentials: credentials.NewStaticCredentials("id", "key", ""),
	})
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := helper.HasObject(ctx, "a/b")
	require.NoError(t, err)
	require.False(t, ok)
	_, err = helper.DownloadObject(ctx, "a/b")
	require.ErrorIs(t, err, ErrNoSuchKey)

	require.NoError(t, helper.UploadObject(ctx, "a/b", []byte("payload")))
	ok, err = helper.HasObject(ctx, "a/b")
	require.NoError(t, err)
	require.True(t, ok)
	data, err := helper.DownloadObject(ctx, "a/b")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}
