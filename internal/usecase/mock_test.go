package usecase

import (
	"context"
	"sync/atomic"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

// mockExtractor is a hand-rolled extraction client for tests. Call counts use
// atomics so concurrent dedup tests can assert on them.
type mockExtractor struct {
	resolveStreamFn func(ctx context.Context, id model.VideoID) (*model.StreamResolution, error)
	resolveInfoFn   func(ctx context.Context, id model.VideoID) (*model.TrackInfo, error)
	searchFn        func(ctx context.Context, query string, limit int) ([]model.SearchResult, error)

	resolveStreamCount atomic.Int32
	resolveInfoCount   atomic.Int32
	searchCount        atomic.Int32
}

func (m *mockExtractor) ResolveStream(ctx context.Context, id model.VideoID) (*model.StreamResolution, error) {
	m.resolveStreamCount.Add(1)
	if m.resolveStreamFn != nil {
		return m.resolveStreamFn(ctx, id)
	}
	return &model.StreamResolution{VideoID: id, URL: "https://upstream/" + id.String()}, nil
}

func (m *mockExtractor) ResolveInfo(ctx context.Context, id model.VideoID) (*model.TrackInfo, error) {
	m.resolveInfoCount.Add(1)
	if m.resolveInfoFn != nil {
		return m.resolveInfoFn(ctx, id)
	}
	return &model.TrackInfo{VideoID: id, Title: "Mock Title"}, nil
}

func (m *mockExtractor) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	m.searchCount.Add(1)
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}
