// Package cache persists step outputs between runs.
//
// A Blob holds the outputs of one step, keyed by workspace key. Each Entry carries just enough to
// rebuild the original artifact. Blobs are CBOR encoded and stored either as one file per step
// (DirStore) or as rows of a SQLite table (SQLiteStore). Entries never expire.
package cache
