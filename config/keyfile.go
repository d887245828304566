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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/algorand/go-provenance/crypto"
)

// LoadOrCreateNodeKey reads the node's signing seed from dataDir, generating
// and persisting a new one on first start.
func LoadOrCreateNodeKey(dataDir string) (*crypto.SignatureSecrets, bool, error) {
	filename := filepath.Join(dataDir, KeyFilename)
	raw, err := os.ReadFile(filename)
	if err == nil {
		var seed crypto.Seed
		if len(raw) != len(seed) {
			return nil, false, fmt.Errorf("%s: expected %d bytes, got %d", filename, len(seed), len(raw))
		}
		copy(seed[:], raw)
		return crypto.GenerateSignatureSecrets(seed), false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	seed := crypto.RandomSeed()
	if err := os.WriteFile(filename, seed[:], 0600); err != nil {
		return nil, false, err
	}
	return crypto.GenerateSignatureSecrets(seed), true, nil
}
