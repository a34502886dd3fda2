// Package vector keeps an embedding index of facts for similarity recall.
package vector

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/philippgille/chromem-go"

	"github.com/baYsed-BuidlAI/luna/internal/adapter/embedding"
	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

const factsCollection = "facts"

// FactIndex is a chromem-go collection of fact embeddings.
type FactIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewFactIndex creates the index. An empty persistPath keeps it in memory.
func NewFactIndex(embedder embedding.Embedder, persistPath string) (*FactIndex, error) {
	var db *chromem.DB
	if persistPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(filepath.Join(persistPath, "facts.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}

	collection, err := db.GetOrCreateCollection(factsCollection, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &FactIndex{db: db, collection: collection}, nil
}

// Add indexes a stored fact. A precomputed embedding on m is reused.
func (x *FactIndex) Add(ctx context.Context, m *domain.Memory) error {
	if m.Content.Text == "" {
		return nil
	}
	kind, _ := m.Content.Metadata["kind"].(string)
	err := x.collection.AddDocument(ctx, chromem.Document{
		ID:        m.ID,
		Content:   m.Content.Text,
		Embedding: m.Embedding,
		Metadata: map[string]string{
			"room_id": m.RoomID,
			"kind":    kind,
		},
	})
	if err != nil {
		return fmt.Errorf("add fact %s: %w", m.ID, err)
	}
	return nil
}

// Match is a recalled fact with its cosine similarity to the query.
type Match struct {
	ID         string
	Claim      string
	Kind       string
	Similarity float32
}

// Search returns up to topK facts of roomID most similar to text.
func (x *FactIndex) Search(ctx context.Context, roomID, text string, topK int) ([]Match, error) {
	if text == "" || topK <= 0 {
		return nil, nil
	}
	if n := x.collection.Count(); n < topK {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := x.collection.Query(ctx, text, topK, map[string]string{"room_id": roomID}, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			ID:         r.ID,
			Claim:      r.Content,
			Kind:       r.Metadata["kind"],
			Similarity: r.Similarity,
		})
	}
	return matches, nil
}

// Count returns the number of indexed facts.
func (x *FactIndex) Count() int {
	return x.collection.Count()
}
