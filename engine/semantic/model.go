package semantic

import (
	"github.com/google/uuid"
)

// VectorRecord is a single embedded message ready to store.
type VectorRecord struct {
	MessageID string
	UserName  string
	Text      string
	Embedding []float32
}

// SearchResult is a single similarity hit. Ephemeral; produced per query
// in descending score order.
type SearchResult struct {
	MessageID string  `json:"message_id"`
	UserName  string  `json:"user_name"`
	Text      string  `json:"text"`
	Score     float32 `json:"score"`
}

// PointID maps a feed message id onto a deterministic Qdrant point id.
// Qdrant requires UUID point ids, and the mapping must be stable so that
// re-indexing the same message replaces its point rather than adding one.
func PointID(messageID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("message:"+messageID)).String()
}
