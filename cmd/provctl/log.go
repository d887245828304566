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
	"os"

	"github.com/spf13/cobra"

	spec "github.com/algorand/go-provenance/daemon/provd/api/spec/v1"
)

var latestOnly bool
var outFile string

func init() {
	logCmd.Flags().StringVar(&packageType, "type", "docker", "Package type (docker or maven2)")
	logCmd.Flags().BoolVarP(&latestOnly, "latest", "l", false, "Only show the most recent entry")

	artifactCmd.Flags().StringVarP(&outFile, "out", "o", "", "Download the artifact into this file")
}

var logCmd = &cobra.Command{
	Use:   "log [package id]",
	Short: "List the transparency log entries of a package",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		res, err := c.Log(ctx, spec.LogQuery{PackageType: packageType, PackageSpecificID: args[0], Latest: latestOnly})
		if err != nil {
			reportErrorf(errorLogQuery, err)
		}
		if len(res.Entries) == 0 {
			reportInfof(infoNoEntries, packageType, args[0])
			return
		}
		for _, e := range res.Entries {
			fmt.Println(makeEntryString(e))
		}
	},
}

var artifactCmd = &cobra.Command{
	Use:   "artifact [hash]",
	Short: "Look up the transparency log entry of an artifact hash",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		e, err := c.LookupArtifact(ctx, args[0])
		if err != nil {
			reportErrorf(errorArtifact, args[0], err)
		}
		fmt.Println(makeEntryString(e))
		if outFile == "" {
			return
		}
		data, err := c.Artifact(ctx, args[0])
		if err != nil {
			reportErrorf(errorArtifact, args[0], err)
		}
		if err := os.WriteFile(outFile, data, 0644); err != nil {
			reportErrorf(errorWriteFile, outFile, err)
		}
		reportInfof(infoWrote, len(data), outFile)
	},
}
