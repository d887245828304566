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

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/test/partitiontest"
)

func TestInMemoryDisposal(t *testing.T) {
	partitiontest.PartitionTest(t)

	acc, err := MakeAccessor("fn.db", false, true)
	require.NoError(t, err)
	err = acc.Atomic(func(tx *sql.Tx) error {
		_, err := tx.Exec("create table Service (data blob)")
		return err
	})
	require.NoError(t, err)

	err = acc.Atomic(func(tx *sql.Tx) error {
		raw := []byte{0, 1, 2}
		_, err := tx.Exec("insert or replace into Service (rowid, data) values (1, ?)", raw)
		return err
	})
	require.NoError(t, err)

	anotherAcc, err := MakeAccessor("fn.db", false, true)
	require.NoError(t, err)
	err = anotherAcc.Atomic(func(tx *sql.Tx) error {
		var nrows int
		row := tx.QueryRow("select count(*) from Service")
		err := row.Scan(&nrows)
		return err
	})
	require.NoError(t, err)
	anotherAcc.Close()

	acc.Close()

	acc, err = MakeAccessor("fn.db", false, true)
	require.NoError(t, err)
	err = acc.Atomic(func(tx *sql.Tx) error {
		var nrows int
		row := tx.QueryRow("select count(*) from Service")
		err := row.Scan(&nrows)
		if err == nil {
			return errors.New("table `Service` presents while it should not")
		}
		return nil
	})
	require.NoError(t, err)

	acc.Close()
}

func TestInMemoryUniqueDB(t *testing.T) {
	partitiontest.PartitionTest(t)

	acc, err := MakeAccessor("fn3.db", false, true)
	require.NoError(t, err)
	err = acc.Atomic(func(tx *sql.Tx) error {
		_, err := tx.Exec("create table Service (data blob)")
		return err
	})
	require.NoError(t, err)

	err = acc.Atomic(func(tx *sql.Tx) error {
		raw := []byte{0, 1, 2}
		_, err := tx.Exec("insert or replace into Service (rowid, data) values (1, ?)", raw)
		return err
	})
	require.NoError(t, err)

	anotherAcc, err := MakeAccessor("fn2.db", false, true)
	require.NoError(t, err)
	err = anotherAcc.Atomic(func(tx *sql.Tx) error {
		var nrows int
		row := tx.QueryRow("select count(*) from Service")
		err := row.Scan(&nrows)
		if err == nil {
			return errors.New("table `Service` presents while it should not")
		}
		return nil
	})
	require.NoError(t, err)
	anotherAcc.Close()

	acc.Close()
}

func TestDBConcurrency(t *testing.T) {
	partitiontest.PartitionTest(t)

	fn := filepath.Join(t.TempDir(), "concurrency.sqlite3")
	acc, err := MakeAccessor(fn, false, false)
	require.NoError(t, err)

	acc2, err := MakeAccessor(fn, true, false)
	require.NoError(t, err)

	err = acc.Atomic(func(tx *sql.Tx) error {
		_, err := tx.Exec("CREATE TABLE foo (a INTEGER, b INTEGER)")
		return err
	})
	require.NoError(t, err)

	err = acc.Atomic(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO foo (a, b) VALUES (?, ?)", 1, 1)
		return err
	})
	require.NoError(t, err)

	c1 := make(chan struct{})
	c2 := make(chan struct{})
	go func() {
		err := acc.Atomic(func(tx *sql.Tx) error {
			<-c2

			_, err := tx.Exec("INSERT INTO foo (a, b) VALUES (?, ?)", 2, 2)
			if err != nil {
				return err
			}

			c1 <- struct{}{}
			<-c2

			_, err = tx.Exec("INSERT INTO foo (a, b) VALUES (?, ?)", 3, 3)
			if err != nil {
				return err
			}

			return nil
		})

		require.NoError(t, err)
		c1 <- struct{}{}
	}()

	err = acc2.Atomic(func(tx *sql.Tx) error {
		var nrows int64
		err := tx.QueryRow("SELECT COUNT(*) FROM foo").Scan(&nrows)
		if err != nil {
			return err
		}

		if nrows != 1 {
			return fmt.Errorf("row count mismatch: %d != 1", nrows)
		}

		return nil
	})
	require.NoError(t, err)

	c2 <- struct{}{}
	<-c1

	err = acc2.Atomic(func(tx *sql.Tx) error {
		var nrows int64
		err := tx.QueryRow("SELECT COUNT(*) FROM foo").Scan(&nrows)
		if err != nil {
			return err
		}

		if nrows != 1 {
			return fmt.Errorf("row count mismatch: %d != 1", nrows)
		}

		return nil
	})
	require.NoError(t, err)

	c2 <- struct{}{}
	<-c1

	err = acc2.Atomic(func(tx *sql.Tx) error {
		var nrows int64
		err := tx.QueryRow("SELECT COUNT(*) FROM foo").Scan(&nrows)
		if err != nil {
			return err
		}

		if nrows != 3 {
			return fmt.Errorf("row count mismatch: %d != 3", nrows)
		}

		return nil
	})
	require.NoError(t, err)
}

func TestAtomicRecoversPanic(t *testing.T) {
	partitiontest.PartitionTest(t)

	acc, err := MakeAccessor("panic.db", false, true)
	require.NoError(t, err)
	defer acc.Close()

	err = acc.Atomic(func(tx *sql.Tx) error {
		panic(errors.New("inside tx"))
	})
	require.EqualError(t, err, "inside tx")

	err = acc.Atomic(func(tx *sql.Tx) error {
		panic("not an error")
	})
	require.EqualError(t, err, "not an error")
}

func TestAtomicRollsBackOnError(t *testing.T) {
	partitiontest.PartitionTest(t)

	acc, err := MakeAccessor("rollback.db", false, true)
	require.NoError(t, err)
	defer acc.Close()

	require.NoError(t, acc.Atomic(func(tx *sql.Tx) error {
		_, err := tx.Exec("CREATE TABLE foo (a INTEGER)")
		return err
	}))

	boom := errors.New("boom")
	err = acc.Atomic(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO foo (a) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, acc.Atomic(func(tx *sql.Tx) error {
		return tx.QueryRow("SELECT COUNT(*) FROM foo").Scan(&n)
	}))
	require.Zero(t, n)
}

func TestUserVersion(t *testing.T) {
	partitiontest.PartitionTest(t)

	acc, err := MakeAccessor(filepath.Join(t.TempDir(), "version.sqlite3"), false, false)
	require.NoError(t, err)
	defer acc.Close()

	ctx := context.Background()
	err = acc.Atomic(func(tx *sql.Tx) error {
		ver, err := GetUserVersion(ctx, tx)
		require.NoError(t, err)
		require.Zero(t, ver)

		prev, err := SetUserVersion(ctx, tx, 3)
		require.NoError(t, err)
		require.Zero(t, prev)
		return nil
	})
	require.NoError(t, err)

	err = acc.Atomic(func(tx *sql.Tx) error {
		ver, err := GetUserVersion(ctx, tx)
		require.Equal(t, int32(3), ver)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, acc.IntegrityCheck())
}

func TestAtomicContextCancelled(t *testing.T) {
	partitiontest.PartitionTest(t)

	acc, err := MakeAccessor("cancel.db", false, true)
	require.NoError(t, err)
	defer acc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = acc.AtomicContext(ctx, func(tx *sql.Tx) error {
		return fmt.Errorf("should not run")
	})
	require.Error(t, err)
}

func TestOpenPair(t *testing.T) {
	partitiontest.PartitionTest(t)

	p, err := OpenPair(filepath.Join(t.TempDir(), "pair.sqlite3"), false)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Wdb.Atomic(func(tx *sql.Tx) error {
		_, err := tx.Exec("CREATE TABLE foo (a INTEGER)")
		return err
	}))
	var n int
	require.NoError(t, p.Rdb.Atomic(func(tx *sql.Tx) error {
		return tx.QueryRow("SELECT COUNT(*) FROM foo").Scan(&n)
	}))
	require.Zero(t, n)
}
