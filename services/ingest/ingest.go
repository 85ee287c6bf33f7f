// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest loads PDF books into the vector store.
//
// Each PDF is split into overlapping character chunks, embedded, and
// written to the BookChunk class in batches. Chunk metadata records the
// source filename and page so answers can cite their origin.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/pipeline"
	"github.com/AleutianAI/bookrag/services/llm"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

var ingestTracer = otel.Tracer("bookrag.ingest")

// batchSize bounds how many objects go to Weaviate per batch call.
const batchSize = 100

// Config tunes chunking and embedding concurrency.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
}

// DefaultConfig returns the ingest defaults.
func DefaultConfig() Config {
	return Config{ChunkSize: 1000, ChunkOverlap: 200, Concurrency: 4}
}

// Report summarizes one ingest run.
type Report struct {
	Files    int
	Chunks   int
	Failed   []string
	Duration time.Duration
}

// Ingestor loads books into Weaviate.
type Ingestor struct {
	client   *weaviate.Client
	embedder llm.Embedder
	config   Config
}

// New creates an Ingestor. The Weaviate client and embedder are required.
func New(client *weaviate.Client, embedder llm.Embedder, config Config) *Ingestor {
	if client == nil {
		panic("ingest.New: weaviate client is required")
	}
	if embedder == nil {
		panic("ingest.New: embedder is required")
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	return &Ingestor{client: client, embedder: embedder, config: config}
}

// IngestDirectory loads every PDF under dir (recursively) into the vector
// store. One unreadable file is recorded in the report and skipped; it
// does not abort the run.
func (i *Ingestor) IngestDirectory(ctx context.Context, dir string) (*Report, error) {
	ctx, span := ingestTracer.Start(ctx, "Ingestor.IngestDirectory")
	defer span.End()
	started := time.Now()

	if err := pipeline.EnsureBookChunkSchema(ctx, i.client); err != nil {
		return nil, err
	}

	var pdfs []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			pdfs = append(pdfs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	if len(pdfs) == 0 {
		return nil, fmt.Errorf("no PDF files found under %s", dir)
	}

	report := &Report{Files: len(pdfs)}
	for _, path := range pdfs {
		chunks, err := i.ingestFile(ctx, path)
		if err != nil {
			slog.Error("Failed to ingest file, skipping", "path", path, "error", err)
			report.Failed = append(report.Failed, path)
			continue
		}
		report.Chunks += chunks
		slog.Info("Ingested file", "path", filepath.Base(path), "chunks", chunks)
	}

	report.Duration = time.Since(started)
	slog.Info("Ingest run complete",
		"files", report.Files,
		"chunks", report.Chunks,
		"failed", len(report.Failed),
		"duration", report.Duration,
	)
	return report, nil
}

// ingestFile splits one PDF, embeds its chunks, and batches them into
// Weaviate. Returns the number of chunks written.
func (i *Ingestor) ingestFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(i.config.ChunkSize),
		textsplitter.WithChunkOverlap(i.config.ChunkOverlap),
	)

	loader := documentloaders.NewPDF(f, info.Size())
	docs, err := loader.LoadAndSplit(ctx, splitter)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	sourceFile := filepath.Base(path)
	objects, err := i.embedChunks(ctx, sourceFile, docs)
	if err != nil {
		return 0, err
	}

	for start := 0; start < len(objects); start += batchSize {
		end := start + batchSize
		if end > len(objects) {
			end = len(objects)
		}
		resp, err := i.client.Batch().ObjectsBatcher().WithObjects(objects[start:end]...).Do(ctx)
		if err != nil {
			return 0, fmt.Errorf("batch insert failed for %s: %w", sourceFile, err)
		}
		for _, obj := range resp {
			if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
				return 0, fmt.Errorf("batch insert rejected an object for %s: %s", sourceFile, obj.Result.Errors.Error[0].Message)
			}
		}
	}
	return len(objects), nil
}

// embedChunks embeds all chunks of one file with bounded concurrency.
func (i *Ingestor) embedChunks(ctx context.Context, sourceFile string, docs []schema.Document) ([]*models.Object, error) {
	objects := make([]*models.Object, len(docs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(i.config.Concurrency)

	for idx := range docs {
		group.Go(func() error {
			doc := docs[idx]
			vector, err := i.embedder.Embed(groupCtx, doc.PageContent)
			if err != nil {
				return fmt.Errorf("embedding failed for %s chunk %d: %w", sourceFile, idx, err)
			}
			// Each goroutine writes its own slot; no lock needed.
			objects[idx] = &models.Object{
				Class: pipeline.BookChunkClass,
				Properties: map[string]interface{}{
					"content":     doc.PageContent,
					"source_file": sourceFile,
					"page":        pageOf(doc),
				},
				Vector: vector,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return objects, nil
}

// pageOf extracts the page number from loader metadata, defaulting to 0.
func pageOf(doc schema.Document) int {
	raw, ok := doc.Metadata["page"]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
