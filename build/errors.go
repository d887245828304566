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

package build

import (
	"errors"
	"fmt"
)

// BuildErrorKind is the reason a build could not confirm an artifact.
type BuildErrorKind int

const (
	// ArtifactNotFound is a build that finished without producing the artifact.
	ArtifactNotFound BuildErrorKind = iota
	// NonMatchingHash is an artifact whose hash differs from the expected one.
	NonMatchingHash
	// Failure is a build command that failed or timed out.
	Failure
	// UnsupportedOperation is a package type or setup this builder cannot build.
	UnsupportedOperation
)

func (k BuildErrorKind) String() string {
	switch k {
	case ArtifactNotFound:
		return "ArtifactNotFound"
	case NonMatchingHash:
		return "NonMatchingHash"
	case Failure:
		return "Failure"
	case UnsupportedOperation:
		return "UnsupportedOperation"
	}
	return fmt.Sprintf("BuildErrorKind(%d)", int(k))
}

// BuildError is an error from build verification.
type BuildError struct {
	Kind BuildErrorKind
	Err  error
}

// Error satisfies builtin interface `error`
func (e *BuildError) Error() string {
	return fmt.Sprintf("build %v: %v", e.Kind, e.Err)
}

// Unwrap returns an underlying error
func (e *BuildError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a BuildError of the given kind.
func IsKind(err error, kind BuildErrorKind) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Kind == kind
}

var (
	errNoBuildCommand = errors.New("no build command configured")
	errEmptyArtifact  = errors.New("build produced an empty artifact")
)
