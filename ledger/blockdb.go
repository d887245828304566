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
	"strings"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/protocol"
)

var blockSchema = []string{
	`CREATE TABLE IF NOT EXISTS blocks (
		ord integer primary key,
		hash blob,
		hdrdata blob,
		blkdata blob)`,
}

var txnSchema = []string{
	`CREATE TABLE IF NOT EXISTS txns (
		txid blob primary key,
		ord integer,
		idx integer)`,
}

var blockResetExprs = []string{
	`DROP TABLE IF EXISTS blocks`,
}

func blockInit(tx *sql.Tx) error {
	for _, tableCreate := range append(blockSchema, txnSchema...) {
		_, err := tx.Exec(tableCreate)
		if err != nil {
			return fmt.Errorf("blockdb blockInit could not create table %v", err)
		}
	}
	return nil
}

func blockGet(tx *sql.Tx, ord basics.Ordinal) (blk bookkeeping.Block, err error) {
	var buf []byte
	err = tx.QueryRow("SELECT blkdata FROM blocks WHERE ord=?", ord).Scan(&buf)
	if err != nil {
		if err == sql.ErrNoRows {
			err = ErrNoEntry{Ordinal: ord}
		}

		return
	}

	err = protocol.Decode(buf, &blk)
	return
}

func blockGetHdr(tx *sql.Tx, ord basics.Ordinal) (hdr bookkeeping.BlockHeader, err error) {
	var buf []byte
	err = tx.QueryRow("SELECT hdrdata FROM blocks WHERE ord=?", ord).Scan(&buf)
	if err != nil {
		if err == sql.ErrNoRows {
			err = ErrNoEntry{Ordinal: ord}
		}

		return
	}

	err = protocol.Decode(buf, &hdr)
	return
}

// blockGetRange returns the blocks in [from, to], in order.
func blockGetRange(tx *sql.Tx, from, to basics.Ordinal) ([]bookkeeping.Block, error) {
	rows, err := tx.Query("SELECT blkdata FROM blocks WHERE ord>=? AND ord<=? ORDER BY ord", from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bookkeeping.Block
	for rows.Next() {
		var buf []byte
		if err := rows.Scan(&buf); err != nil {
			return nil, err
		}
		var blk bookkeeping.Block
		if err := protocol.Decode(buf, &blk); err != nil {
			return nil, err
		}
		out = append(out, blk)
	}
	return out, rows.Err()
}

func blockPut(tx *sql.Tx, blk bookkeeping.Block) error {
	return blockPutTable(tx, "blocks", blk)
}

func blockPutTable(tx *sql.Tx, table string, blk bookkeeping.Block) error {
	next, err := blockNextTable(tx, table)
	if err != nil {
		return err
	}
	if blk.Ordinal() != next {
		return fmt.Errorf("inserting block %d but expected %d", blk.Ordinal(), next)
	}

	hash := blk.Hash()
	_, err = tx.Exec("INSERT INTO "+table+" (ord, hash, hdrdata, blkdata) VALUES (?, ?, ?, ?)",
		blk.Ordinal(),
		hash[:],
		protocol.Encode(&blk.BlockHeader),
		protocol.Encode(&blk),
	)
	return err
}

func blockNext(tx *sql.Tx) (basics.Ordinal, error) {
	return blockNextTable(tx, "blocks")
}

func blockNextTable(tx *sql.Tx, table string) (basics.Ordinal, error) {
	var max sql.NullInt64
	err := tx.QueryRow("SELECT MAX(ord) FROM " + table).Scan(&max)
	if err != nil {
		return 0, err
	}

	if max.Valid {
		return basics.Ordinal(max.Int64 + 1), nil
	}

	return 0, nil
}

func txnsPut(tx *sql.Tx, blk bookkeeping.Block) error {
	for i, stx := range blk.Payset {
		_, err := tx.Exec("INSERT INTO txns (txid, ord, idx) VALUES (?, ?, ?)", stx.Hash[:], blk.Ordinal(), i)
		if err != nil {
			return err
		}
	}
	return nil
}

func txnsLoad(tx *sql.Tx) (map[transactions.Txid]basics.Ordinal, error) {
	rows, err := tx.Query("SELECT txid, ord FROM txns")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[transactions.Txid]basics.Ordinal)
	for rows.Next() {
		var buf []byte
		var ord basics.Ordinal
		if err := rows.Scan(&buf, &ord); err != nil {
			return nil, err
		}
		var txid transactions.Txid
		copy(txid[:], buf)
		out[txid] = ord
	}
	return out, rows.Err()
}

func txnsReset(tx *sql.Tx) error {
	_, err := tx.Exec("DELETE FROM txns")
	return err
}

// blockStartStaging creates an empty stagingblocks table that a replacement
// chain is written to before it is swapped in.
func blockStartStaging(tx *sql.Tx) error {
	// delete the old stagingblocks table, if there is such.
	for _, stmt := range blockResetExprs {
		stmt = strings.Replace(stmt, "blocks", "stagingblocks", 1)
		_, err := tx.Exec(stmt)
		if err != nil {
			return err
		}
	}

	for _, stmt := range blockSchema {
		stmt = strings.Replace(stmt, "blocks", "stagingblocks", 1)
		_, err := tx.Exec(stmt)
		if err != nil {
			return err
		}
	}
	return nil
}

func blockPutStaging(tx *sql.Tx, blk bookkeeping.Block) error {
	return blockPutTable(tx, "stagingblocks", blk)
}

func blockCompleteStaging(tx *sql.Tx) (err error) {
	_, err = tx.Exec("ALTER TABLE blocks RENAME TO blocks_old")
	if err != nil {
		return err
	}
	_, err = tx.Exec("ALTER TABLE stagingblocks RENAME TO blocks")
	if err != nil {
		return err
	}
	_, err = tx.Exec("DROP TABLE IF EXISTS blocks_old")
	if err != nil {
		return err
	}
	return nil
}
