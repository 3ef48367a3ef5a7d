// Package ingest turns a directory of PDF papers into vector store documents.
//
// A Processor walks the papers directory, extracts and chunks each PDF and
// writes the chunks to a vectorstore.Store. A bbolt manifest next to the
// vector store data records the hash and chunk IDs of every ingested file:
//
//   - unchanged files are skipped unless Config.Force is set
//   - a changed file has its previous chunks deleted before the new ones are added
//   - files that disappeared have their chunks deleted
//
// Chunk IDs are UUIDv5 values derived from the file path, its content hash and
// the chunk index, so re-ingesting identical content overwrites rather than
// duplicates.
package ingest
