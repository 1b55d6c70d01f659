// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package roster caches the signed-in user's hospital member list.
//
// # Cache Rules
//
//   - The cache is valid for user u iff it was fetched for u and is younger
//     than the TTL (5 minutes by default).
//   - An unforced Fetch is a no-op while the cache is valid and non-empty,
//     and is dropped while another fetch is in flight.
//   - A forced Fetch always goes to the network. Forced fetches are not
//     serialized; the last one to finish wins.
//   - Entries and FetchedAt are replaced together from one successful
//     response. Failures keep the previous entries and record an error.
//   - A change of identity (logout, account switch) clears entries,
//     FetchedAt, owner and error together. A response that finishes after
//     such a clear, or whose user is no longer signed in, is discarded.
//
// IsLoading stays true until the last in-flight fetch has finished, whatever
// its outcome.
package roster
