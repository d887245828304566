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

package ledger

import (
	"database/sql"
	"fmt"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
)

// ArtifactRecord is a committed artifact, keyed by its package specific
// artifact id and hash.
type ArtifactRecord struct {
	PackageSpecificArtifactID string
	ArtifactHash              string
	Txid                      transactions.Txid
	Ordinal                   basics.Ordinal
}

type artifactKey struct {
	id   string
	hash string
}

func (r ArtifactRecord) key() artifactKey {
	return artifactKey{r.PackageSpecificArtifactID, r.ArtifactHash}
}

var artifactSchema = []string{
	`CREATE TABLE IF NOT EXISTS artifacts (
		psaid text,
		ahash text,
		txid blob,
		ord integer,
		PRIMARY KEY (psaid, ahash))`,
}

func artifactInit(tx *sql.Tx) error {
	for _, stmt := range artifactSchema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("artifacts could not create table %v", err)
		}
	}
	return nil
}

func artifactPut(tx *sql.Tx, recs []ArtifactRecord) error {
	for _, rec := range recs {
		_, err := tx.Exec("INSERT INTO artifacts (psaid, ahash, txid, ord) VALUES (?, ?, ?, ?)",
			rec.PackageSpecificArtifactID, rec.ArtifactHash, rec.Txid[:], rec.Ordinal)
		if err != nil {
			return err
		}
	}
	return nil
}

func artifactLoad(tx *sql.Tx) (map[artifactKey]ArtifactRecord, error) {
	rows, err := tx.Query("SELECT psaid, ahash, txid, ord FROM artifacts")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[artifactKey]ArtifactRecord)
	for rows.Next() {
		var rec ArtifactRecord
		var buf []byte
		if err := rows.Scan(&rec.PackageSpecificArtifactID, &rec.ArtifactHash, &buf, &rec.Ordinal); err != nil {
			return nil, err
		}
		copy(rec.Txid[:], buf)
		out[rec.key()] = rec
	}
	return out, rows.Err()
}

func artifactReset(tx *sql.Tx) error {
	_, err := tx.Exec("DELETE FROM artifacts")
	return err
}
