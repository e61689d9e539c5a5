// Package ingestion loads documents into an index.
//
// The Pipeline type writes documents through a storage.DocumentRepository:
//   - Documents without an ID get one derived from their content
//   - Every document is validated before anything is written
//   - Batches are written concurrently on a worker pool
//   - Batches failing on a transaction conflict are retried with exponential backoff
//
// ReadDocuments decodes JSON-lines input into documents, and ProgressTracker
// reports how far a large load has come.
package ingestion
