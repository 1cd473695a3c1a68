// Package grouping forms and maintains the pass-sharing groups of a trip.
//
// Two paths write groups, and both replace a trip's whole partition in one
// transaction:
//
//   - Batch: FormGroups packs the checked-in riders still waiting for a
//     group, keeping the groups that already exist.
//   - Reactive: Join and Leave re-partition the whole roster inside the
//     transaction that changes it, keeping stewards and their group numbers
//     where possible.
//
// Packing is pure (see calculator.Pack); this package owns the itinerary
// split, numbering, persistence and per-trip serialization around it.
package grouping
