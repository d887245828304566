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

const (
	errorNoDataDir      = "Data directory not specified.  Please use -d, -e or set $PROV_DATA in your environment."
	errorNodeNotRunning = "Cannot find the REST address of the node in %s; is provd running? (%v)"
	errorNodeStatus     = "Cannot contact the node: %v"
	errorPublish        = "Cannot publish: %v"
	errorRequest        = "Cannot get request %s: %v"
	errorLogQuery       = "Cannot query the transparency log: %v"
	errorArtifact       = "Cannot get artifact %s: %v"
	errorBadAddress     = "Cannot parse node address %s: %v"
	errorNodes          = "Cannot manage nodes: %v"
	errorBadOrdinal     = "Cannot parse block ordinal %s: %v"
	errorBlock          = "Cannot get block %d: %v"
	errorWriteFile      = "Cannot write %s: %v"

	infoNodeStatus = `Node ID: %s
Address: %s
Authorized: %s
Last committed block: %d (%s)
Time since last block: %s
Transparency log indexed up to: %d
Authorized nodes: %d (quorum %d)
Pending transactions: %d`
	infoRequest     = "Request %s (%s %s): %s"
	infoRequestTxid = "  transaction %s"
	infoRequestDone = "  committed in block %d"
	infoRequestErr  = "  reason: %s"
	infoLogEntry    = "%d\t%s\t%s\t%s\t%s\t%s"
	infoNoEntries   = "No transparency log entries for %s %s"
	infoNodeEntry   = "%s\t%s\t%s\tsince %d"
	infoMarked      = "Marked %s"
	infoWrote       = "Wrote %d bytes to %s"
)
