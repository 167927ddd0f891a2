// Package checkpoint defines the durable store of suspended runs.
//
// Backends live in sub-packages: memory (tests, single process), fs (afs
// backed JSON files), sqlite and postgres (database/sql through sqlstore) and
// redis. checkpointtest holds the behaviour every backend must exhibit.
package checkpoint
