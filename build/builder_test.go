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

package build

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/test/partitiontest"
)

func testBuilder(t *testing.T, command string) *ScriptBuilder {
	cfg := config.GetDefaultLocal()
	cfg.BuildCommand = command
	cfg.BuildTimeout = 10 * time.Second
	return MakeScriptBuilder(logging.TestingLog(t), cfg, t.TempDir())
}

func TestScriptBuilderBuild(t *testing.T) {
	partitiontest.PartitionTest(t)

	b := testBuilder(t, `printf '%s:%s' "$1" "$2" > "$3"`)
	res, err := b.Build(context.Background(), protocol.Docker, "https://github.com/alpinelinux/docker-alpine")
	require.NoError(t, err)
	require.Equal(t, "docker:https://github.com/alpinelinux/docker-alpine", string(res.Artifact))
	require.Equal(t, transactions.HashArtifact(res.Artifact), res.Hash)

	// the environment carries the same values
	b = testBuilder(t, `printf '%s' "$PROV_PACKAGE_TYPE" > "$PROV_OUTPUT"`)
	res, err = b.Build(context.Background(), protocol.Maven2, "https://github.com/example/lib")
	require.NoError(t, err)
	require.Equal(t, "maven2", string(res.Artifact))
}

func TestScriptBuilderVerify(t *testing.T) {
	partitiontest.PartitionTest(t)

	b := testBuilder(t, `printf 'alpine' > "$3"`)
	want := transactions.HashArtifact([]byte("alpine"))

	hash, err := b.Verify(context.Background(), protocol.Docker, "repo", want)
	require.NoError(t, err)
	require.Equal(t, want, hash)

	hash, err = b.Verify(context.Background(), protocol.Docker, "repo", transactions.HashArtifact([]byte("other")))
	require.True(t, IsKind(err, NonMatchingHash))
	require.Equal(t, want, hash)
}

func TestScriptBuilderErrors(t *testing.T) {
	partitiontest.PartitionTest(t)

	testcases := []struct {
		name    string
		command string
		ptype   protocol.PackageType
		kind    BuildErrorKind
	}{
		{"no command", "", protocol.Docker, UnsupportedOperation},
		{"unknown package type", "true", protocol.PackageType("npm"), UnsupportedOperation},
		{"command fails", "echo broken >&2; exit 3", protocol.Docker, Failure},
		{"no artifact", "true", protocol.Docker, ArtifactNotFound},
		{"empty artifact", `: > "$3"`, protocol.Docker, ArtifactNotFound},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			b := testBuilder(t, tc.command)
			_, err := b.Verify(context.Background(), tc.ptype, "repo", transactions.HashArtifact([]byte("x")))
			require.Error(t, err)
			require.True(t, IsKind(err, tc.kind), "got %v", err)
		})
	}
}

func TestScriptBuilderTimeout(t *testing.T) {
	partitiontest.PartitionTest(t)

	cfg := config.GetDefaultLocal()
	cfg.BuildCommand = "sleep 10"
	cfg.BuildTimeout = 100 * time.Millisecond
	b := MakeScriptBuilder(logging.TestingLog(t), cfg, t.TempDir())

	start := time.Now()
	_, err := b.Build(context.Background(), protocol.Docker, "repo")
	require.True(t, IsKind(err, Failure))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
}
