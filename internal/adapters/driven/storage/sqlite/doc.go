// Package sqlite persists the index and the status journal in a single
// database file (~/.doclens/data/index.db by default) using the pure Go
// modernc.org/sqlite driver.
//
// Chunks are stored with their embeddings as little-endian float32 blobs
// next to per-document metadata; a query loads candidate vectors and ranks
// them in memory. Each document is committed in one transaction, so a query
// never sees a partially indexed document.
//
// The schema comes from the numbered migrations embedded under migrations/.
// WAL mode lets reads run alongside the single writer.
package sqlite
