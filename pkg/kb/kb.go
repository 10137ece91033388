// Package kb is the embedded vector knowledge base the support
// responder retrieves from. Articles live in an in-process chromem
// collection; embeddings come from the configured provider.
package kb

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// EmbeddingProvider generates vectors for indexing and querying.
// *llm.Embedder satisfies it.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is one retrieved article.
type Result struct {
	Title      string
	Body       string
	Similarity float32
}

// minSimilarity filters out retrievals that are technically nearest
// but topically useless.
const minSimilarity = 0.35

// KnowledgeBase wraps a chromem collection of support articles.
type KnowledgeBase struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
	count      int
}

// New creates an empty in-memory knowledge base.
func New(embedder EmbeddingProvider) (*KnowledgeBase, error) {
	if embedder == nil {
		return nil, fmt.Errorf("kb: embedder is required")
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("support_articles", nil,
		func(ctx context.Context, text string) ([]float32, error) {
			return embedder.Embed(ctx, text)
		})
	if err != nil {
		return nil, fmt.Errorf("kb: create collection: %w", err)
	}

	return &KnowledgeBase{db: db, collection: collection}, nil
}

// Add indexes one article. Title and body are embedded together so a
// query matching only the title still retrieves the article.
func (k *KnowledgeBase) Add(ctx context.Context, id, title, body string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	err := k.collection.AddDocument(ctx, chromem.Document{
		ID:      id,
		Content: title + "\n" + body,
		Metadata: map[string]string{
			"title": title,
			"body":  body,
		},
	})
	if err != nil {
		return fmt.Errorf("kb: add article %s: %w", id, err)
	}
	k.count++
	return nil
}

// Count returns the number of indexed articles.
func (k *KnowledgeBase) Count() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.count
}

// Search returns up to topK articles relevant to the query, best
// first. Low-similarity matches are dropped rather than returned as
// noise.
func (k *KnowledgeBase) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.count == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}
	if topK > k.count {
		topK = k.count
	}

	found, err := k.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("kb: query: %w", err)
	}

	results := make([]Result, 0, len(found))
	for _, doc := range found {
		if doc.Similarity < minSimilarity {
			continue
		}
		results = append(results, Result{
			Title:      doc.Metadata["title"],
			Body:       doc.Metadata["body"],
			Similarity: doc.Similarity,
		})
	}
	return results, nil
}
