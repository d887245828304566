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

// Package metrics exposes node counters and gauges in the Prometheus format.
package metrics

// MetricName describes the name and description of a single metric
type MetricName struct {
	Name        string
	Description string
}

var (
	// AgreementProposals Number of transactions proposed by this node
	AgreementProposals = MetricName{Name: "provd_agreement_proposals_total", Description: "Number of transactions proposed by this node"}
	// AgreementVotes Number of votes cast by this node
	AgreementVotes = MetricName{Name: "provd_agreement_votes_total", Description: "Number of votes cast by this node"}
	// AgreementCommits Number of proposals that reached quorum
	AgreementCommits = MetricName{Name: "provd_agreement_commits_total", Description: "Number of proposals that reached quorum"}
	// AgreementTimeouts Number of proposals that timed out before quorum
	AgreementTimeouts = MetricName{Name: "provd_agreement_timeouts_total", Description: "Number of proposals that timed out before quorum"}
	// LedgerBlocksAppended Number of blocks appended to the ledger
	LedgerBlocksAppended = MetricName{Name: "provd_ledger_blocks_appended_total", Description: "Number of blocks appended to the ledger"}
	// LedgerBlocksRejected Number of blocks the ledger refused to append
	LedgerBlocksRejected = MetricName{Name: "provd_ledger_blocks_rejected_total", Description: "Number of blocks the ledger refused to append"}
	// LedgerLatestOrdinal Ordinal of the ledger tip
	LedgerLatestOrdinal = MetricName{Name: "provd_ledger_latest_ordinal", Description: "Ordinal of the ledger tip"}
	// IndexerEntries Number of transparency log entries written
	IndexerEntries = MetricName{Name: "provd_indexer_entries_total", Description: "Number of transparency log entries written"}
	// CatchupFetches Number of blocks fetched from peers
	CatchupFetches = MetricName{Name: "provd_catchup_blocks_fetched_total", Description: "Number of blocks fetched from peers"}
	// CatchupFailures Number of failed block range fetches
	CatchupFailures = MetricName{Name: "provd_catchup_fetch_failures_total", Description: "Number of failed block range fetches"}
	// TransactionPoolSize Number of pending transactions in the pool
	TransactionPoolSize = MetricName{Name: "provd_txpool_pending", Description: "Number of pending transactions in the pool"}
	// BlockServiceRequests Number of block range requests served over HTTP
	BlockServiceRequests = MetricName{Name: "provd_blockservice_requests_total", Description: "Number of block range requests served over HTTP"}
	// NetworkMessagesReceived Number of messages received from peers
	NetworkMessagesReceived = MetricName{Name: "provd_network_messages_received_total", Description: "Number of messages received from peers"}
	// NetworkMessagesSent Number of messages sent to peers
	NetworkMessagesSent = MetricName{Name: "provd_network_messages_sent_total", Description: "Number of messages sent to peers"}
)
