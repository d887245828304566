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

// Package build reproduces package builds and hashes the artifacts they produce.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/util"
)

// Result is the artifact of a successful build.
type Result struct {
	Artifact []byte
	Hash     string
	Elapsed  time.Duration
}

// ScriptBuilder runs a configured shell command to reproduce a build. The
// command receives the package type, the source repository and the output
// path as $1, $2 and $3 (also as PROV_PACKAGE_TYPE, PROV_SOURCE_REPOSITORY
// and PROV_OUTPUT), and must leave the artifact at the output path.
type ScriptBuilder struct {
	command string
	timeout time.Duration
	workDir string
	log     logging.Logger
}

// MakeScriptBuilder returns a builder for cfg.BuildCommand, running builds
// under workDir.
func MakeScriptBuilder(log logging.Logger, cfg config.Local, workDir string) *ScriptBuilder {
	return &ScriptBuilder{
		command: cfg.BuildCommand,
		timeout: cfg.BuildTimeout,
		workDir: workDir,
		log:     log,
	}
}

// Build runs the build of sourceRepository and returns the artifact and its
// hex SHA-256.
func (b *ScriptBuilder) Build(ctx context.Context, packageType protocol.PackageType, sourceRepository string) (Result, error) {
	if b.command == "" {
		return Result{}, &BuildError{Kind: UnsupportedOperation, Err: errNoBuildCommand}
	}
	if !packageType.Valid() {
		return Result{}, &BuildError{Kind: UnsupportedOperation, Err: fmt.Errorf("package type %q", packageType)}
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if err := os.MkdirAll(b.workDir, 0700); err != nil {
		return Result{}, &BuildError{Kind: Failure, Err: err}
	}
	dir, err := os.MkdirTemp(b.workDir, "build-")
	if err != nil {
		return Result{}, &BuildError{Kind: Failure, Err: err}
	}
	defer os.RemoveAll(dir)

	output := filepath.Join(dir, "artifact")
	env := []string{
		"PROV_PACKAGE_TYPE=" + string(packageType),
		"PROV_SOURCE_REPOSITORY=" + sourceRepository,
		"PROV_OUTPUT=" + output,
	}

	start := time.Now()
	b.log.Infof("building %s %s", packageType, sourceRepository)
	_, stderr, err := util.ExecAndCaptureOutput(ctx, env, dir, "/bin/sh", "-c", b.command, "provbuild", string(packageType), sourceRepository, output)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w after %v", ctx.Err(), elapsed)
		}
		stderr = strings.TrimSpace(stderr)
		if len(stderr) > 512 {
			stderr = stderr[len(stderr)-512:]
		}
		b.log.Warnf("build of %s failed: %v: %s", sourceRepository, err, stderr)
		return Result{}, &BuildError{Kind: Failure, Err: fmt.Errorf("%w: %s", err, stderr)}
	}

	artifact, err := os.ReadFile(output)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, &BuildError{Kind: ArtifactNotFound, Err: err}
		}
		return Result{}, &BuildError{Kind: Failure, Err: err}
	}
	if len(artifact) == 0 {
		return Result{}, &BuildError{Kind: ArtifactNotFound, Err: errEmptyArtifact}
	}

	res := Result{Artifact: artifact, Hash: transactions.HashArtifact(artifact), Elapsed: elapsed}
	b.log.With("hash", res.Hash).With("elapsed", elapsed).Infof("built %s", sourceRepository)
	return res, nil
}

// Verify rebuilds sourceRepository and returns the hash of the artifact. The
// hash is returned along with a NonMatchingHash error when it differs from
// expectedHash.
func (b *ScriptBuilder) Verify(ctx context.Context, packageType protocol.PackageType, sourceRepository string, expectedHash string) (string, error) {
	res, err := b.Build(ctx, packageType, sourceRepository)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(res.Hash, expectedHash) {
		return res.Hash, &BuildError{Kind: NonMatchingHash, Err: fmt.Errorf("built %s, expected %s", res.Hash, expectedHash)}
	}
	return res.Hash, nil
}
