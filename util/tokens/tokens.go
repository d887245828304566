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

package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// APITokenFilename is the name of the file holding the REST API token
const APITokenFilename = "provd.token"

const tokenLength = 32

var errInvalidToken = fmt.Errorf("API token must be %d lowercase hex characters", 2*tokenLength)

// GenerateAPIToken returns a fresh random API token.
func GenerateAPIToken() (string, error) {
	var buf [tokenLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

// ValidateAPIToken checks the token format.
func ValidateAPIToken(token string) error {
	if len(token) != 2*tokenLength || strings.ToLower(token) != token {
		return errInvalidToken
	}
	if _, err := hex.DecodeString(token); err != nil {
		return errInvalidToken
	}
	return nil
}

// GetAndValidateAPIToken reads the token stored in dataDir/filename,
// creating it on first use, and checks it.
func GetAndValidateAPIToken(dataDir, filename string) (string, error) {
	path := filepath.Join(dataDir, filename)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		token, err := GenerateAPIToken()
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(path, []byte(token), 0600); err != nil {
			return "", err
		}
		return token, nil
	}
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(raw))
	if err := ValidateAPIToken(token); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return token, nil
}
