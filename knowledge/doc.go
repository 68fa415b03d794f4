// Package knowledge defines the vector-indexed storage capability shared by
// every knowledge tier of a character: world lore, long-term memory and
// conversational style exemplars.
//
// Architecture:
//   - Store: one collection of Entries (chromem-go embedded database)
//   - Embedder: text-to-vector conversion (mock, ONNX, OpenAI, cached)
//   - Location: on-disk address {base}/{kind}/{name}
//
// Distances are cosine distances: lower is closer, 0 is identical,
// 2 is opposite. Visibility is carried in the known_by metadata key and
// queried with OR semantics.
package knowledge
