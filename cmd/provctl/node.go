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
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/protocol"
)

var nodeID string

func init() {
	nodeCmd.AddCommand(listNodesCmd)
	nodeCmd.AddCommand(authorizeNodeCmd)
	nodeCmd.AddCommand(removeNodeCmd)
	nodeCmd.AddCommand(markCandidateCmd)
	nodeCmd.AddCommand(markRemovalCmd)

	authorizeNodeCmd.Flags().StringVarP(&nodeID, "id", "i", "", "Transport id of the node")
	authorizeNodeCmd.MarkFlagRequired("id")
	markCandidateCmd.Flags().StringVarP(&nodeID, "id", "i", "", "Transport id of the node")
	markCandidateCmd.MarkFlagRequired("id")
}

func parseAddress(s string) basics.Address {
	addr, err := basics.UnmarshalChecksumAddress(s)
	if err != nil {
		reportErrorf(errorBadAddress, s, err)
	}
	return addr
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage the authorized node set",
	Long:  `A node joins or leaves the authorized set once a quorum of members votes for it. Members vote yes only for nodes they marked.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

var listNodesCmd = &cobra.Command{
	Use:   "list",
	Short: "List the node registry",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		res, err := c.Nodes(ctx)
		if err != nil {
			reportErrorf(errorNodes, err)
		}
		sort.Slice(res.Nodes, func(i, j int) bool { return res.Nodes[i].Since < res.Nodes[j].Since })
		for _, n := range res.Nodes {
			fmt.Println(makeNodeString(n))
		}
	},
}

var authorizeNodeCmd = &cobra.Command{
	Use:   "authorize [address]",
	Short: "Propose adding a node to the authorized set",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		req, err := c.AuthorizeNode(ctx, parseAddress(args[0]), nodeID)
		if err != nil {
			reportErrorf(errorNodes, err)
		}
		fmt.Println(makeRequestString(req))
	},
}

var removeNodeCmd = &cobra.Command{
	Use:   "remove [address]",
	Short: "Propose removing a node from the authorized set",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		req, err := c.RemoveNode(ctx, parseAddress(args[0]))
		if err != nil {
			reportErrorf(errorNodes, err)
		}
		fmt.Println(makeRequestString(req))
	},
}

var markCandidateCmd = &cobra.Command{
	Use:   "mark-candidate [address]",
	Short: "Vote yes on a future proposal to authorize a node",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		if err := c.MarkCandidate(ctx, parseAddress(args[0]), nodeID); err != nil {
			reportErrorf(errorNodes, err)
		}
		reportInfof(infoMarked, args[0])
	},
}

var markRemovalCmd = &cobra.Command{
	Use:   "mark-removal [address]",
	Short: "Vote yes on a future proposal to remove a node",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		if err := c.MarkPendingRemoval(ctx, parseAddress(args[0])); err != nil {
			reportErrorf(errorNodes, err)
		}
		reportInfof(infoMarked, args[0])
	},
}

var blockCmd = &cobra.Command{
	Use:   "block [ordinal]",
	Short: "Print a committed block as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ord, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			reportErrorf(errorBadOrdinal, args[0], err)
		}
		c := ensureClient()
		ctx, cancel := commandContext()
		defer cancel()
		blk, err := c.Block(ctx, basics.Ordinal(ord))
		if err != nil {
			reportErrorf(errorBlock, ord, err)
		}
		fmt.Println(string(protocol.EncodeJSON(&blk)))
	},
}
