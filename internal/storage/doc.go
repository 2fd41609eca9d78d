// Package storage persists refresh history so operators can see what the
// panel showed, when, and whether paints succeeded.
//
// The history is append-only with a bounded retention window; it is an
// observability aid, not the ledger (the last-refresh ledger lives in the
// config state file).
package storage
