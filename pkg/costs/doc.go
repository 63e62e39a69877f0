// Package costs accumulates cost, latency and outcome metrics per provider.
//
// The Tracker keeps an append-only ledger of records; no record is ever
// mutated or deleted by normal operation. Aggregated views (total cost,
// averages, success rates) are derived from per-provider running totals.
// Monetary amounts use shopspring/decimal so repeated small charges do not
// accumulate float error.
package costs
