// Package schedule holds the schedule data model: the cron expression
// wrapper used to compute fire instants and the registry that owns the live
// schedule set.
//
// # Expressions
//
// Expressions use 5-field cron syntax (min hour dom mon dow) with an
// optional leading seconds field, plus descriptors like "@hourly". A 5-field
// expression fires at second 0. Parsing and next-instant computation are
// second-resolution and bounded: an expression that cannot produce a future
// instant within the forward search horizon is unsatisfiable.
//
// # Registry
//
// The registry is single-writer, copy-on-write. Every mutation installs a
// freshly built, id-ordered slice; Snapshot hands out the current slice,
// which is never mutated afterwards, so readers need no locking beyond the
// pointer swap.
package schedule
