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

package pools

import (
	"errors"
)

// ErrDuplicate is returned by Remember for a transaction that is already pending or committed.
var ErrDuplicate = errors.New("TransactionPool.Remember: transaction already known")

// ErrPoolFull indicates the current transaction pool has reached its max capacity
var ErrPoolFull = errors.New("TransactionPool.Remember: transaction pool has reached capacity")
