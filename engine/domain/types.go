// Package domain holds the core types, validation rules, and error
// taxonomy shared by the feed, index, and query layers.
package domain

import "fmt"

// Message is a single member message from the remote feed. Immutable once
// fetched for a given index build.
type Message struct {
	ID       string `json:"id"`
	UserName string `json:"user_name"`
	Text     string `json:"message"`
}

// EmbeddingDims is the dimensionality of the embedding space. Indexing and
// querying must embed into the same space, so this is fixed module-wide.
const EmbeddingDims = 1536

// CanonicalText returns the text that gets embedded for a message. This is
// the only place the indexing-side representation is built; no case folding
// happens here or on the query path, so both sides stay uniform.
func CanonicalText(m Message) string {
	return fmt.Sprintf("%s: %s", m.UserName, m.Text)
}
