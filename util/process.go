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

package util

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"
)

// ExecAndCaptureOutput runs the specified command and args and captures
// stdout and stderr into strings, returning them upon completion. env is
// appended to the current process environment. The process is killed when
// ctx is done.
func ExecAndCaptureOutput(ctx context.Context, env []string, dir string, command string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	subcmd := exec.CommandContext(ctx, command, args...)
	subcmd.Stdout = &stdout
	subcmd.Stderr = &stderr
	subcmd.Dir = dir
	subcmd.Env = append(os.Environ(), env...)
	// children of a killed command may hold the output pipes open
	subcmd.WaitDelay = time.Second

	err := subcmd.Run()
	return stdout.String(), stderr.String(), err
}
