// Package models defines the core domain models for splitpass.
//
// # Models
//
//   - Trip: one scheduled train leg on a service date that riders join
//   - Participant: one rider's candidate-for-grouping record on a trip
//   - Group: a numbered set of participants sharing one multi-rider pass
//   - RunResult: the outcome of one batch tick or one rebalance
//
// # Design Principles
//
// 1. **Avoid circular references**: Use ID strings instead of pointers for relationships
// 2. **Never delete riders**: a participant who leaves is marked with LeftAt and
// loses its group reference; the row stays
// 3. **Groups are replaced, not edited**: every membership change rewrites a
// trip's whole partition in one transaction
package models
