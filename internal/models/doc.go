// Package models defines the domain models shared by the storage and service
// layers.
//
// # Models
//
//   - User: a registered account.
//   - Group: a set of members sharing expenses, joinable by code.
//   - Member: one person in a group, with or without a linked User.
//   - Expense: an immutable record of one payment, split among participants.
//   - Allocation: one participant's resolved share of an expense.
//   - Settlement: a payment between two members outside the app.
//
// # Conventions
//
//  1. Amounts are shopspring/decimal values here and int64 minor units in
//     storage and in the calculator. Never float64.
//  2. Relationships are ID strings, not pointers.
//  3. Member order inside a Group is join order. The equal split relies on it,
//     so stores must return members sorted by Position.
//  4. Balances are derived on request and have no model.
package models
