// Package embeddings turns chunk text into vectors.
//
// Three providers are supported and selected at runtime by NewProvider:
//
//   - fastembed: local ONNX models through fastembed-go (cgo builds only)
//   - tei: a Text Embeddings Inference server reached over HTTP
//   - openai: any OpenAI-compatible /embeddings endpoint
//
// Remote providers share an optional request rate limit. Generation latency,
// batch sizes and failures are recorded as OpenTelemetry metrics, which stay
// no-ops unless the process installs a meter provider.
package embeddings
