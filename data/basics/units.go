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

package basics

import "strconv"

// Ordinal is the position of a block in the ledger. The genesis block is at ordinal 0.
type Ordinal uint64

// SubSaturate subtracts x from o, returning 0 if the result would be negative.
func (o Ordinal) SubSaturate(x Ordinal) Ordinal {
	if x > o {
		return 0
	}
	return o - x
}

func (o Ordinal) String() string {
	return strconv.FormatUint(uint64(o), 10)
}
