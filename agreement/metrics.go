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

package agreement

import "github.com/algorand/go-provenance/util/metrics"

var (
	proposals = metrics.MakeCounter(metrics.AgreementProposals)
	votesCast = metrics.MakeCounter(metrics.AgreementVotes)
	commits   = metrics.MakeCounter(metrics.AgreementCommits)
	timeouts  = metrics.MakeCounter(metrics.AgreementTimeouts)
)
