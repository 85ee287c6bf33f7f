// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/llm"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BookChunkClass is the Weaviate class holding ingested book passages.
const BookChunkClass = "BookChunk"

// Searcher returns the top passages for a query, best first.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]datatypes.RetrievedPassage, error)
}

// RetrieverConfig tunes the candidate fetch and MMR selection.
type RetrieverConfig struct {
	// FetchK is the candidate pool size pulled from Weaviate before MMR.
	FetchK int

	// Lambda balances query similarity against diversity in [0,1].
	// 1 is pure similarity, 0 is pure diversity.
	Lambda float64
}

// DefaultRetrieverConfig returns the retrieval defaults.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{FetchK: 20, Lambda: 0.5}
}

// WeaviateSearcher retrieves book passages by embedding the query and
// running a nearVector search, then applies maximal marginal relevance
// over the candidate pool so the final passages cover distinct material
// instead of near-duplicate chunks of the same page.
type WeaviateSearcher struct {
	client   *weaviate.Client
	embedder llm.Embedder
	config   RetrieverConfig
}

// NewWeaviateSearcher creates a WeaviateSearcher. Both the Weaviate client
// and the embedder are required.
func NewWeaviateSearcher(client *weaviate.Client, embedder llm.Embedder, config RetrieverConfig) *WeaviateSearcher {
	if client == nil {
		panic("NewWeaviateSearcher: weaviate client is required")
	}
	if embedder == nil {
		panic("NewWeaviateSearcher: embedder is required")
	}
	if config.FetchK <= 0 {
		config.FetchK = 20
	}
	if config.Lambda < 0 || config.Lambda > 1 {
		config.Lambda = 0.5
	}
	return &WeaviateSearcher{client: client, embedder: embedder, config: config}
}

// bookChunkHit mirrors the GraphQL response shape for one BookChunk object.
type bookChunkHit struct {
	Content    string `json:"content"`
	SourceFile string `json:"source_file"`
	Page       int    `json:"page"`
	Additional struct {
		Vector []float32 `json:"vector"`
	} `json:"_additional"`
}

type bookChunkResult struct {
	Get struct {
		BookChunk []bookChunkHit `json:"BookChunk"`
	} `json:"Get"`
}

// Search implements Searcher.
func (s *WeaviateSearcher) Search(ctx context.Context, query string, k int) ([]datatypes.RetrievedPassage, error) {
	ctx, span := pipelineTracer.Start(ctx, "WeaviateSearcher.Search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("retrieval.k", k),
		attribute.Int("retrieval.fetch_k", s.config.FetchK),
	)

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query embedding failed")
		return nil, &RetrievalError{StatusCode: 500, Message: fmt.Sprintf("query embedding failed: %v", err), Retryable: true}
	}

	fetchK := s.config.FetchK
	if fetchK < k {
		fetchK = k
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryVector)
	resp, err := s.client.GraphQL().Get().
		WithClassName(BookChunkClass).
		WithFields(
			graphql.Field{Name: "content"},
			graphql.Field{Name: "source_file"},
			graphql.Field{Name: "page"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "vector"}}},
		).
		WithNearVector(nearVector).
		WithLimit(fetchK).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "weaviate query failed")
		return nil, &RetrievalError{StatusCode: 502, Message: fmt.Sprintf("weaviate query failed: %v", err), Retryable: true}
	}
	if len(resp.Errors) > 0 {
		msg := resp.Errors[0].Message
		span.SetStatus(codes.Error, "weaviate graphql error")
		return nil, &RetrievalError{StatusCode: 502, Message: fmt.Sprintf("weaviate graphql error: %s", msg), Retryable: false}
	}

	result, err := datatypes.ParseGraphQLResponse[bookChunkResult](resp)
	if err != nil {
		span.RecordError(err)
		return nil, &RetrievalError{StatusCode: 500, Message: fmt.Sprintf("malformed weaviate response: %v", err), Retryable: false}
	}

	hits := result.Get.BookChunk
	selected := selectMMR(queryVector, hits, k, s.config.Lambda)

	now := time.Now()
	passages := make([]datatypes.RetrievedPassage, 0, len(selected))
	for _, hit := range selected {
		passages = append(passages, datatypes.RetrievedPassage{
			Content:     hit.Content,
			SourceName:  hit.SourceFile,
			SourcePage:  hit.Page,
			RawScore:    0.0,
			RetrievedAt: now,
		})
	}

	span.SetAttributes(attribute.Int("retrieval.num_passages", len(passages)))
	slog.Info("Passages retrieved", "candidates", len(hits), "selected", len(passages))
	return passages, nil
}

// EnsureBookChunkSchema creates the BookChunk class if it does not exist
// yet. The class stores vectors supplied at ingest time, so the vectorizer
// is none.
func EnsureBookChunkSchema(ctx context.Context, client *weaviate.Client) error {
	exists, err := client.Schema().ClassExistenceChecker().WithClassName(BookChunkClass).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check schema for %s: %w", BookChunkClass, err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      BookChunkClass,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "source_file", DataType: []string{"text"}},
			{Name: "page", DataType: []string{"int"}},
		},
	}
	if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", BookChunkClass, err)
	}
	slog.Info("Created Weaviate class", "class", BookChunkClass)
	return nil
}

// ====== Maximal Marginal Relevance ======

// selectMMR picks up to k hits from candidates, greedily maximizing
// lambda*sim(query, d) - (1-lambda)*max sim(d, selected).
//
// Candidates without a stored vector are skipped: there is nothing to
// score them against.
func selectMMR(queryVector []float32, candidates []bookChunkHit, k int, lambda float64) []bookChunkHit {
	pool := make([]bookChunkHit, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Additional.Vector) > 0 {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 || k <= 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}

	querySims := make([]float64, len(pool))
	for i, c := range pool {
		querySims[i] = cosineSimilarity(queryVector, c.Additional.Vector)
	}

	selected := make([]bookChunkHit, 0, k)
	selectedIdx := make([]int, 0, k)
	used := make([]bool, len(pool))

	for len(selected) < k {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i := range pool {
			if used[i] {
				continue
			}
			maxSelectedSim := 0.0
			for _, j := range selectedIdx {
				sim := cosineSimilarity(pool[i].Additional.Vector, pool[j].Additional.Vector)
				if sim > maxSelectedSim {
					maxSelectedSim = sim
				}
			}
			score := lambda * querySims[i]
			if len(selectedIdx) > 0 {
				score -= (1 - lambda) * maxSelectedSim
			}
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		used[bestIdx] = true
		selectedIdx = append(selectedIdx, bestIdx)
		selected = append(selected, pool[bestIdx])
	}
	return selected
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
