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

package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/util/db"
)

const (
	dbName  = "indexer.sqlite"
	maxRows = 100

	// OperationAddArtifact is the operation of an entry projected from an AddArtifact transaction.
	OperationAddArtifact = "AddArtifact"
)

var schema = `
	CREATE TABLE IF NOT EXISTS entries(
		id CHAR(52) PRIMARY KEY NOT NULL,
		package_type VARCHAR(16) NOT NULL,
		package_specific_id TEXT NOT NULL,
		num_artifacts INTEGER NOT NULL,
		package_specific_artifact_id TEXT NOT NULL,
		artifact_hash CHAR(64) NOT NULL,
		source_hash CHAR(64) NOT NULL,
		artifact_id TEXT NOT NULL,
		source_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		operation VARCHAR(16) NOT NULL,
		node_id TEXT NOT NULL,
		node_public_key CHAR(58) NOT NULL,
		ordinal INTEGER NOT NULL,
		position INTEGER NOT NULL,
		UNIQUE (ordinal, position)
	);

	CREATE TABLE IF NOT EXISTS params(
		k CHAR(15) PRIMARY KEY DEFAULT NULL,
		v BLOB DEFAULT NULL,
		UNIQUE (k)
	);

	INSERT OR IGNORE INTO params (k, v) VALUES ('next', 0);
	INSERT OR IGNORE INTO params (k, v) VALUES ('tip', '');

	CREATE INDEX IF NOT EXISTS package_idx ON entries (package_type, package_specific_id, ordinal, position);
	CREATE INDEX IF NOT EXISTS artifact_hash_idx ON entries (artifact_hash, ordinal, position);
`

const insertEntry = `INSERT INTO entries (
		id, package_type, package_specific_id, num_artifacts, package_specific_artifact_id,
		artifact_hash, source_hash, artifact_id, source_id, timestamp, operation,
		node_id, node_public_key, ordinal, position)
	VALUES (
		:id, :package_type, :package_specific_id, :num_artifacts, :package_specific_artifact_id,
		:artifact_hash, :source_hash, :artifact_id, :source_id, :timestamp, :operation,
		:node_id, :node_public_key, :ordinal, :position)`

const entryColumns = `id, package_type, package_specific_id, num_artifacts, package_specific_artifact_id,
	artifact_hash, source_hash, artifact_id, source_id, timestamp, operation,
	node_id, node_public_key, ordinal, position`

// ErrNotFound is returned when no entry matches a lookup.
var ErrNotFound = errors.New("no transparency log entry found")

// errNotNext is returned when a block is not the one after the indexed height.
var errNotNext = errors.New("block does not extend the index")

// Entry is one transparency log record, projected from a committed
// AddArtifact transaction.
type Entry struct {
	ID                        string `db:"id" json:"id"`
	PackageType               string `db:"package_type" json:"package_type"`
	PackageSpecificID         string `db:"package_specific_id" json:"package_specific_id"`
	NumArtifacts              uint32 `db:"num_artifacts" json:"num_artifacts"`
	PackageSpecificArtifactID string `db:"package_specific_artifact_id" json:"package_specific_artifact_id"`
	ArtifactHash              string `db:"artifact_hash" json:"artifact_hash"`
	SourceHash                string `db:"source_hash" json:"source_hash"`
	ArtifactID                string `db:"artifact_id" json:"artifact_id"`
	SourceID                  string `db:"source_id" json:"source_id"`
	Timestamp                 int64  `db:"timestamp" json:"timestamp"`
	Operation                 string `db:"operation" json:"operation"`
	NodeID                    string `db:"node_id" json:"node_id"`
	NodePublicKey             string `db:"node_public_key" json:"node_public_key"`

	// Ordinal and Position locate the transaction in the ledger and give the commit order.
	Ordinal  uint64 `db:"ordinal" json:"ordinal"`
	Position int    `db:"position" json:"position"`
}

// makeEntries projects the AddArtifact transactions of blk, in payset order.
func makeEntries(blk bookkeeping.Block) []Entry {
	var out []Entry
	for i, stx := range blk.Payset {
		f, ok := stx.Txn.AddArtifact()
		if !ok {
			continue
		}
		out = append(out, Entry{
			ID:                        stx.Hash.String(),
			PackageType:               string(f.PackageType),
			PackageSpecificID:         f.PackageSpecificID,
			NumArtifacts:              f.NumArtifacts,
			PackageSpecificArtifactID: f.PackageSpecificArtifactID,
			ArtifactHash:              f.ArtifactHash,
			SourceHash:                f.SourceHash,
			ArtifactID:                f.ArtifactID,
			SourceID:                  f.SourceID,
			Timestamp:                 stx.Txn.Timestamp,
			Operation:                 OperationAddArtifact,
			NodeID:                    f.NodeID,
			NodePublicKey:             stx.Txn.Submitter.String(),
			Ordinal:                   uint64(blk.Ordinal()),
			Position:                  i,
		})
	}
	return out
}

// DB is the db access layer for the Indexer
type DB struct {
	dbs db.Pair
	rdb *sqlx.DB

	// DBPath holds the db file path
	DBPath string
}

// MakeIndexerDB opens or creates the index database under dataDir.
func MakeIndexerDB(log logging.Logger, dataDir string, inMemory bool) (*DB, error) {
	idb := &DB{DBPath: filepath.Join(dataDir, dbName)}

	var err error
	idb.dbs, err = db.OpenPair(idb.DBPath, inMemory)
	if err != nil {
		return nil, err
	}
	idb.dbs.SetLogger(log)

	if _, err := idb.dbs.Wdb.Handle.Exec(schema); err != nil {
		idb.dbs.Close()
		return nil, err
	}
	idb.rdb = sqlx.NewDb(idb.dbs.Rdb.Handle, "sqlite3")
	return idb, nil
}

// height returns the next ordinal to index and the hash of the last indexed block.
func height(tx *sql.Tx) (next basics.Ordinal, tip string, err error) {
	if err = tx.QueryRow("SELECT v FROM params WHERE k = 'next'").Scan(&next); err != nil {
		return
	}
	err = tx.QueryRow("SELECT v FROM params WHERE k = 'tip'").Scan(&tip)
	return
}

func setHeight(tx *sql.Tx, next basics.Ordinal, tip string) error {
	if _, err := tx.Exec("UPDATE params SET v = ? WHERE k = 'next'", uint64(next)); err != nil {
		return err
	}
	_, err := tx.Exec("UPDATE params SET v = ? WHERE k = 'tip'", tip)
	return err
}

// AddBlocks writes the entries of blocks, which must start at the indexed
// height and be linked to the last indexed block. Blocks below the height
// are skipped. It returns the number of entries written.
func (idb *DB) AddBlocks(ctx context.Context, blocks []bookkeeping.Block) (written int, err error) {
	err = idb.dbs.Wdb.AtomicContext(ctx, func(tx *sql.Tx) error {
		written = 0
		next, tip, err := height(tx)
		if err != nil {
			return err
		}
		for _, blk := range blocks {
			if blk.Ordinal() < next {
				continue
			}
			if blk.Ordinal() != next {
				return fmt.Errorf("%w: block %d, index at %d", errNotNext, blk.Ordinal(), next)
			}
			if next > 0 && blk.Branch.String() != tip {
				return fmt.Errorf("%w: block %d has parent %v, index tip %s", errForked, blk.Ordinal(), blk.Branch, tip)
			}
			for _, e := range makeEntries(blk) {
				query, args, err := sqlx.Named(insertEntry, e)
				if err != nil {
					return err
				}
				if _, err := tx.Exec(query, args...); err != nil {
					return err
				}
				written++
			}
			next = blk.Ordinal() + 1
			tip = blk.Hash().String()
		}
		return setHeight(tx, next, tip)
	})
	return
}

// Reset removes every entry.
func (idb *DB) Reset(ctx context.Context) error {
	return idb.dbs.Wdb.AtomicContext(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM entries"); err != nil {
			return err
		}
		return setHeight(tx, 0, "")
	})
}

// Height returns the next ordinal to index and the hash of the last indexed block.
func (idb *DB) Height() (next basics.Ordinal, tip string, err error) {
	err = idb.dbs.Rdb.Atomic(func(tx *sql.Tx) error {
		var err0 error
		next, tip, err0 = height(tx)
		return err0
	})
	return
}

// IntegrityCheck runs the sqlite integrity check on the index.
func (idb *DB) IntegrityCheck() error {
	return idb.dbs.Wdb.IntegrityCheck()
}

type cursor struct {
	ordinal  uint64
	position int
}

// read runs fn in a read transaction, through sqlx.
func (idb *DB) read(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return idb.dbs.Rdb.AtomicContext(ctx, func(tx *sql.Tx) error {
		return fn(&sqlx.Tx{Tx: tx, Mapper: idb.rdb.Mapper})
	})
}

// page returns up to limit entries of a package after c, in commit order.
func (idb *DB) page(ctx context.Context, packageType, packageSpecificID string, c cursor, limit int) (out []Entry, err error) {
	query := `SELECT ` + entryColumns + ` FROM entries
		WHERE package_type = ? AND package_specific_id = ?
		AND (ordinal > ? OR (ordinal = ? AND position > ?))
		ORDER BY ordinal, position
		LIMIT ?`
	err = idb.read(ctx, func(tx *sqlx.Tx) error {
		out = nil
		rows, err := tx.QueryxContext(ctx, query, packageType, packageSpecificID, c.ordinal, c.ordinal, c.position, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e Entry
			if err := rows.StructScan(&e); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return
}

// byArtifactHash returns the first committed entry with the given artifact hash.
func (idb *DB) byArtifactHash(ctx context.Context, artifactHash string) (e Entry, err error) {
	err = idb.read(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &e, `SELECT `+entryColumns+` FROM entries
			WHERE artifact_hash = ? ORDER BY ordinal, position LIMIT 1`, artifactHash)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return
}

// latest returns the last committed entry of a package.
func (idb *DB) latest(ctx context.Context, packageType, packageSpecificID string) (Entry, error) {
	var entries []Entry
	err := idb.read(ctx, func(tx *sqlx.Tx) error {
		entries = nil
		return tx.SelectContext(ctx, &entries, `SELECT `+entryColumns+` FROM entries
			WHERE package_type = ? AND package_specific_id = ?
			ORDER BY ordinal DESC, position DESC LIMIT 1`, packageType, packageSpecificID)
	})
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// all returns every entry in commit order.
func (idb *DB) all(ctx context.Context) (entries []Entry, err error) {
	err = idb.read(ctx, func(tx *sqlx.Tx) error {
		entries = nil
		return tx.SelectContext(ctx, &entries, `SELECT `+entryColumns+` FROM entries ORDER BY ordinal, position`)
	})
	return
}

// Close closes the db connections
func (idb *DB) Close() {
	idb.dbs.Close()
}
