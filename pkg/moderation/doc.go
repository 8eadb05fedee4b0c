// Package moderation provides a reusable library for moderating community
// submissions (events and news articles) and publishing approved items into
// read-optimized published collections.
//
// It exposes a single Service interface that resolves which collection owns a
// content id, runs the approve/reject/edit workflow, replicates approved items
// into published collections and appends audit records for every decision.
// Store implementations (memory, Postgres, SQLite), event sinks (Redis,
// CloudEvents) and snapshot stores (memory, S3) live under subpackages.
//
// Side channels
//
// Audit log writes, event notifications and snapshot uploads are best-effort.
// Their failures never fail the moderation action; they are logged and
// counted in moderation_side_effect_failures_total.
package moderation
