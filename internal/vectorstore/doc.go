// Package vectorstore writes embedded paper chunks to a vector database.
//
// Two backends implement Store:
//
//   - ChromemStore: chromem-go persisted under the project's vector_store
//     directory. No server required; this is the default.
//   - QdrantStore: an external Qdrant server over gRPC.
//
// Stores embed documents through the Embedder they were built with, once per
// AddDocuments call, and persist the vectors alongside content and metadata.
// Every operation opens an OpenTelemetry span; spans are dropped unless the
// process installs a tracer provider.
package vectorstore
