// Package models defines the persisted record shapes for Foyer.
//
// # Records
//
// The following records make up the wire format written through the
// persistence adapter and produced by a backup export:
//   - Transaction and Ledger: one income or expense line and the keyed collection holding it
//   - AccountSettings: per-ledger visibility of an account
//   - Expense, Payment and Resident: the pieces of an ad-hoc project
//   - Sample: one timestamped entry of the budget history
//   - Settings: household-wide display and ordering preferences
//
// Aggregates with behaviour (accounts, users, projects, history) live in their own packages
// and embed these records.
//
// # Design Principles
//
// 1. **Stable JSON**: field names match the backup format so exports round-trip
// 2. **No behaviour**: validation and arithmetic belong to calculator, budget and project
// 3. **IDs as strings**: relationships use UUID strings, never pointers
package models
