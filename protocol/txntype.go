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

// TxType is the type of the transaction written to the ledger
type TxType string

const (
	// CreateTx bootstraps a network with its first authorized node
	CreateTx TxType = "create"

	// AddNodeTx authorizes a candidate node
	AddNodeTx TxType = "addnode"

	// RemoveNodeTx revokes an authorized node
	RemoveNodeTx TxType = "rmnode"

	// AddArtifactTx records a reproducibly built artifact in the transparency log
	AddArtifactTx TxType = "addartifact"

	// UnknownTx signals an error
	UnknownTx TxType = "unknown"
)

// PackageType names the package ecosystem an artifact belongs to.
type PackageType string

const (
	// Docker images, keyed by image:tag
	Docker PackageType = "docker"

	// Maven2 artifacts, keyed by group:artifact:version
	Maven2 PackageType = "maven2"
)

// Valid reports whether p is a known package type.
func (p PackageType) Valid() bool {
	switch p {
	case Docker, Maven2:
		return true
	}
	return false
}
