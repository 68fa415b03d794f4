// Package memory provides the two personal memory tiers of a character.
//
// The short-term memory (STM) is a bounded, in-process FIFO of the latest
// interactions with a running summary. When it is full, the oldest
// interaction is evicted into the long-term memory (LTM), a vector-indexed
// knowledge.Store tagged with the mood the character was in at that moment.
//
// Architecture:
//   - ShortTermMemory: FIFO buffer + Summarizer
//   - LongTermMemory: per-character knowledge.Store ({base}/ltm/{name})
//   - Summarizer: text-in/text-out capability (extractive or model-backed)
//
// Embedders for the stores live in memory/embedder:
//   - mock: deterministic bag-of-words vectors (tests, offline)
//   - cache: ristretto cache in front of any embedder
//   - openai: hosted embeddings API
//   - onnx: all-MiniLM-L6-v2 via ONNX Runtime (build tag "onnx")
package memory
