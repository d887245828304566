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

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	spec "github.com/algorand/go-provenance/daemon/provd/api/spec/v1"
)

var packageType string
var packageID string
var sourceRepository string
var packageArtifactID string
var sourceHash string
var waitForResult bool

func init() {
	publishCmd.Flags().StringVar(&packageType, "type", "docker", "Package type (docker or maven2)")
	publishCmd.Flags().StringVarP(&packageID, "package", "p", "", "Package specific id, such as alpine:3.16.0")
	publishCmd.Flags().StringVarP(&sourceRepository, "source", "s", "", "Source repository to build from")
	publishCmd.Flags().StringVar(&packageArtifactID, "artifact-id", "", "Package specific artifact id (defaults to sha256:<artifact hash>)")
	publishCmd.Flags().StringVar(&sourceHash, "source-hash", "", "Hash of the source (defaults to the hash of the repository)")
	publishCmd.Flags().BoolVarP(&waitForResult, "wait", "w", false, "Wait until the request finishes")
	publishCmd.MarkFlagRequired("package")
	publishCmd.MarkFlagRequired("source")

	requestCmd.Flags().BoolVarP(&waitForResult, "wait", "w", false, "Wait until the request finishes")
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Build an artifact and publish it to the transparency log",
	Long:  `Ask the node to build the package from source and to propose the artifact to the authorized set. The request id is printed right away.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		req, err := c.Publish(ctx, spec.PublishRequest{
			PackageType:               packageType,
			PackageSpecificID:         packageID,
			SourceRepository:          sourceRepository,
			PackageSpecificArtifactID: packageArtifactID,
			SourceHash:                sourceHash,
		})
		if err != nil {
			reportErrorf(errorPublish, err)
		}
		if waitForResult {
			req, err = c.WaitForRequest(ctx, req.ID, time.Second)
			if err != nil {
				reportErrorf(errorRequest, req.ID, err)
			}
		}
		fmt.Println(makeRequestString(req))
	},
}

var requestCmd = &cobra.Command{
	Use:   "request [id]",
	Short: "Show the status of a publish, authorize or remove request",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		req, err := c.Request(ctx, args[0])
		if err == nil && waitForResult {
			req, err = c.WaitForRequest(ctx, args[0], time.Second)
		}
		if err != nil {
			reportErrorf(errorRequest, args[0], err)
		}
		fmt.Println(makeRequestString(req))
	},
}
