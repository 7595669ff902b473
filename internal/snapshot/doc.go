// Package snapshot implements the State Aggregator component.
//
// The aggregator merges decoded records into a single Snapshot with
// field-level overwrite: present fields replace, absent fields are kept,
// corner readings merge per corner and lists replace wholesale. Merges are
// idempotent and never cross sub-tree boundaries. Derived metrics are
// recomputed synchronously before an Update is returned.
package snapshot
