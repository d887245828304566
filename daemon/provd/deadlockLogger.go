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

package provd

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/logging"
)

// deadlockLogger collects go-deadlock reports and logs them once through
// the node logger before aborting.
type deadlockLogger struct {
	logging.Logger
	*bytes.Buffer
	bufferSync     chan struct{}
	panic          func()
	reportDeadlock sync.Once
}

func (logger *deadlockLogger) abort() {
	logger.Logger.Panic("potential deadlock detected")
}

// Write implements io.Writer for deadlock.Opts.LogBuf.
func (logger *deadlockLogger) Write(p []byte) (n int, err error) {
	logger.bufferSync <- struct{}{}
	n, err = logger.Buffer.Write(p)
	<-logger.bufferSync
	return
}

// allStacks returns the stacks of every goroutine.
func allStacks() []byte {
	size := 256 * 1024
	for {
		buf := make([]byte, size)
		if n := runtime.Stack(buf, true); n < size {
			return buf[:n]
		}
		size *= 2
	}
}

func (logger *deadlockLogger) onPotentialDeadlock() {
	logger.reportDeadlock.Do(func() {
		stacks := allStacks()

		logger.bufferSync <- struct{}{}
		report := logger.String()
		<-logger.bufferSync

		fmt.Fprintln(os.Stderr, string(stacks))

		// the log writer may hold a lock of its own
		go func() {
			logger.Error(report)
			logger.panic()
		}()
	})
}

func setupDeadlockLogger(log logging.Logger) *deadlockLogger {
	logger := &deadlockLogger{
		Logger:     log,
		Buffer:     bytes.NewBuffer(make([]byte, 0)),
		bufferSync: make(chan struct{}, 1),
	}
	logger.panic = logger.abort
	deadlock.Opts.LogBuf = logger
	deadlock.Opts.OnPotentialDeadlock = logger.onPotentialDeadlock
	return logger
}
