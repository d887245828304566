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

package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/test/partitiontest"
)

type testStruct struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Name  string   `codec:"n"`
	Count uint64   `codec:"c"`
	Tags  []string `codec:"t"`
	Key   [4]byte  `codec:"k"`
}

func TestEncodeDecodeCanonical(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	a := require.New(t)

	x := testStruct{Name: "alpine", Count: 3, Tags: []string{"3.16.0"}, Key: [4]byte{1, 2, 3, 4}}
	enc := Encode(&x)

	var y testStruct
	a.NoError(Decode(enc, &y))
	a.Equal(x, y)

	// canonical: encoding the same value twice yields the same bytes
	a.Equal(enc, Encode(&y))
}

func TestDecodeUnknownField(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	type other struct {
		_struct struct{} `codec:",omitempty,omitemptyarray"`
		Extra   uint64   `codec:"zz"`
	}
	enc := Encode(&other{Extra: 9})
	var y testStruct
	require.Error(t, Decode(enc, &y))
}

func TestDecodeGarbage(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var y testStruct
	require.Error(t, Decode([]byte{0xc1, 0xff, 0x00}, &y))
}

func TestEncodeStream(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var buf bytes.Buffer
	x := testStruct{Name: "maven", Count: 1}
	EncodeStream(&buf, &x)
	require.Equal(t, Encode(&x), buf.Bytes())

	var y testStruct
	require.NoError(t, DecodeStream(&buf, &y))
	require.Equal(t, x, y)
}

func TestJSONRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	x := testStruct{Name: "alpine", Count: 2}
	var y testStruct
	require.NoError(t, DecodeJSON(EncodeJSON(&x), &y))
	require.Equal(t, x, y)
}

func TestTagComplement(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	require.Equal(t, SyncResponseTag, SyncRequestTag.Complement())
	require.Equal(t, SyncRequestTag, SyncResponseTag.Complement())
	require.Equal(t, LatestResponseTag, LatestRequestTag.Complement())
	require.Equal(t, UnknownMsgTag, VoteTag.Complement())
}

func TestPackageTypeValid(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	require.True(t, Docker.Valid())
	require.True(t, Maven2.Valid())
	require.False(t, PackageType("npm").Valid())
}
