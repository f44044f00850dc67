package usecase

import (
	"context"
	"fmt"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
	"github.com/hszk-dev/audiorelay/internal/extractor"
)

// maxSearchResults caps the number of results returned to clients.
const maxSearchResults = 10

// SearchService delegates free-text search to the extraction collaborator.
type SearchService interface {
	Search(ctx context.Context, query string) ([]model.SearchResult, error)
}

type searchService struct {
	ext extractor.Client
}

// NewSearchService creates a SearchService backed by the extraction client.
func NewSearchService(ext extractor.Client) SearchService {
	return &searchService{ext: ext}
}

func (s *searchService) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	results, err := s.ext.Search(ctx, query, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	return results, nil
}
