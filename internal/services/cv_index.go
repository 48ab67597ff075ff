package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200
	snippetRunes = 280
)

var ErrEmptyQuery = errors.New("search query is empty")

// CVIndexService keeps validated CVs searchable by content.
type CVIndexService interface {
	IndexDocument(ctx context.Context, submissionID, documentID string, document []byte) (int, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

type cvIndexService struct {
	embedder  Embedder
	store     QdrantService
	pdfParser PDFParserService
	chunker   TextChunker
	log       *zap.Logger
}

func NewCVIndexService(
	embedder Embedder,
	store QdrantService,
	pdfParser PDFParserService,
	chunker TextChunker,
	log *zap.Logger,
) CVIndexService {
	return &cvIndexService{
		embedder:  embedder,
		store:     store,
		pdfParser: pdfParser,
		chunker:   chunker,
		log:       log,
	}
}

// IndexDocument replaces the indexed chunks of a submission and returns how many were stored.
func (s *cvIndexService) IndexDocument(ctx context.Context, submissionID, documentID string, document []byte) (int, error) {
	content, err := s.pdfParser.ExtractText(document)
	if err != nil {
		return 0, fmt.Errorf("failed to extract CV text: %w", err)
	}

	chunks := s.chunker.ChunkText(content.Text, chunkSize, chunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	points := make([]CVChunk, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := s.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		points = append(points, CVChunk{
			SubmissionID: submissionID,
			DocumentID:   documentID,
			ChunkIndex:   i,
			Text:         chunk,
			Embedding:    embedding,
		})
	}

	if err := s.store.DeleteSubmission(ctx, submissionID); err != nil {
		return 0, err
	}
	if err := s.store.UpsertChunks(ctx, points); err != nil {
		return 0, err
	}

	s.log.Info("🗂️  CV indexed",
		zap.String("submission_id", submissionID),
		zap.Int("pages", content.PageCount),
		zap.Int("chunks", len(points)),
	)
	return len(points), nil
}

// Search returns the best-scoring chunk per submission, highest score first.
func (s *cvIndexService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 5
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Over-fetch since several chunks of one CV usually rank together.
	hits, err := s.store.SearchSimilar(ctx, embedding, limit*3)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(hits))
	results := make([]SearchResult, 0, limit)
	for _, hit := range hits {
		if seen[hit.SubmissionID] {
			continue
		}
		seen[hit.SubmissionID] = true
		hit.Text = snippet(hit.Text)
		results = append(results, hit)
		if len(results) == limit {
			break
		}
	}

	return results, nil
}

func snippet(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= snippetRunes {
		return string(runes)
	}
	return string(runes[:snippetRunes])
}
