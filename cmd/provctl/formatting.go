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
	"strings"
	"time"

	"github.com/fatih/color"

	spec "github.com/algorand/go-provenance/daemon/provd/api/spec/v1"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// colorStatus renders request and registry statuses.
func colorStatus(status string) string {
	switch status {
	case "success", "authorized":
		return green.Sprint(status)
	case "failure", "removed":
		return red.Sprint(status)
	case "running", "candidate", "pending-removal":
		return yellow.Sprint(status)
	}
	return status
}

func yesNo(b bool) string {
	if b {
		return green.Sprint("yes")
	}
	return red.Sprint("no")
}

func makeStatusString(st spec.NodeStatus, now time.Time) string {
	sinceLast := "n/a"
	if !st.LastTimestamp.IsZero() {
		sinceLast = fmt.Sprintf("%.1fs", now.Sub(st.LastTimestamp).Seconds())
	}
	return fmt.Sprintf(infoNodeStatus,
		st.NodeID,
		st.Address,
		yesNo(st.Authorized),
		st.LastOrdinal,
		st.LastHash,
		sinceLast,
		st.IndexedUpTo,
		st.Members,
		st.Quorum,
		st.PendingTxns)
}

func makeRequestString(r spec.Request) string {
	lines := []string{fmt.Sprintf(infoRequest, r.ID, r.Kind, r.Subject, colorStatus(r.Status))}
	if r.Txid != "" {
		lines = append(lines, fmt.Sprintf(infoRequestTxid, r.Txid))
	}
	if r.Status == "success" && r.Ordinal > 0 {
		lines = append(lines, fmt.Sprintf(infoRequestDone, r.Ordinal))
	}
	if r.Error != "" {
		lines = append(lines, fmt.Sprintf(infoRequestErr, r.Error))
	}
	return strings.Join(lines, "\n")
}

func makeEntryString(e spec.LogEntry) string {
	return fmt.Sprintf(infoLogEntry,
		e.Ordinal,
		time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339),
		e.Operation,
		e.PackageSpecificArtifactID,
		e.ArtifactHash,
		e.NodeID)
}

func makeNodeString(n spec.RegisteredNode) string {
	return fmt.Sprintf(infoNodeEntry, n.Address, n.NodeID, colorStatus(n.Status), n.Since)
}
