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
)

var watchMillisecond uint64

func init() {
	statusCmd.Flags().Uint64VarP(&watchMillisecond, "watch", "w", 0, "Time (in milliseconds) between two status updates")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get the current node status",
	Long:  `Show the ledger tip, index height and authorized set of the running node.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		c := ensureClient()
		for {
			ctx, cancel := commandContext()
			st, err := c.Status(ctx)
			cancel()
			if err != nil {
				reportErrorf(errorNodeStatus, err)
			}
			fmt.Println(makeStatusString(st, time.Now()))
			if watchMillisecond == 0 {
				return
			}
			time.Sleep(time.Duration(watchMillisecond) * time.Millisecond)
			fmt.Println()
		}
	},
}
