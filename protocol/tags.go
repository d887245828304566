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

package protocol

// Tag represents a message type identifier.  Messages have a Tag field. Handlers can register to a given Tag.
// e.g., the agreement service can register to handle proposals with the ProposeTxTag tag.
type Tag string

// Tags, in lexicographic sort order of tag values to avoid duplicates.
const (
	UnknownMsgTag     Tag = "??"
	BlockTag          Tag = "BK"
	LatestRequestTag  Tag = "LQ"
	LatestResponseTag Tag = "LR"
	ProposeTxTag      Tag = "PT"
	SyncRequestTag    Tag = "SQ"
	SyncResponseTag   Tag = "SR"
	VoteTag           Tag = "VT"
)

// TagList is the set of tags a transport must be able to route.
var TagList = []Tag{
	BlockTag,
	LatestRequestTag,
	LatestResponseTag,
	ProposeTxTag,
	SyncRequestTag,
	SyncResponseTag,
	VoteTag,
}

// Complement is a convenience function for returning a corresponding response/request tag
func (t Tag) Complement() Tag {
	switch t {
	case SyncRequestTag:
		return SyncResponseTag
	case SyncResponseTag:
		return SyncRequestTag
	case LatestRequestTag:
		return LatestResponseTag
	case LatestResponseTag:
		return LatestRequestTag
	default:
		return UnknownMsgTag
	}
}
