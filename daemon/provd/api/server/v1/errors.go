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

package v1

var (
	errFailedRetrievingNodeStatus = "failed retrieving node status"
	errFailedParsingBody          = "failed to parse the request body"
	errFailedToParseAddress       = "failed to parse the address"
	errFailedToParseOrdinal       = "failed to parse the ordinal"
	errUnsupportedPackageType     = "unsupported package type"
	errMissingPackageID           = "package_specific_id must be set"
	errRequestNotFound            = "request not found"
	errEntryNotFound              = "no transparency log entry found"
	errArtifactNotFound           = "artifact not found"
	errBlockNotFound              = "block not found"
	errFailedLookingUpLog         = "failed to retrieve information from the transparency log"
	errFailedLookingUpLedger      = "failed to retrieve information from the ledger"
	errNodeNotAuthorized          = "node is not in the authorized set"
	errServiceShuttingDown        = "operation aborted as server is shutting down"
)
