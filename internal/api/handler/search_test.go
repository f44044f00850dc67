package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

type mockSearchService struct {
	searchFn func(ctx context.Context, query string) ([]model.SearchResult, error)
}

func (m *mockSearchService) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	return m.searchFn(ctx, query)
}

func TestSearchHandler_Search(t *testing.T) {
	mustID := func(raw string) model.VideoID {
		id, err := model.ParseVideoID(raw)
		if err != nil {
			t.Fatalf("bad test ID %q: %v", raw, err)
		}
		return id
	}

	svc := &mockSearchService{
		searchFn: func(ctx context.Context, query string) ([]model.SearchResult, error) {
			return []model.SearchResult{
				{
					VideoID:         mustID("dQw4w9WgXcQ"),
					Title:           "Never Gonna Give You Up",
					ChannelName:     "Rick Astley",
					ThumbnailURL:    "https://t/a.jpg",
					DurationSeconds: 212,
				},
				{
					VideoID:     mustID("9bZkp7q19f0"),
					Title:       "Gangnam Style",
					ChannelName: "officialpsy",
				},
			}, nil
		},
	}
	h := NewSearchHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=rick+astley", nil)
	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var items []SearchItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].VideoID != "dQw4w9WgXcQ" || items[0].Duration != 212 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
}

func TestSearchHandler_MissingQuery(t *testing.T) {
	h := NewSearchHandler(&mockSearchService{
		searchFn: func(ctx context.Context, query string) ([]model.SearchResult, error) {
			t.Fatal("search must not run without a query")
			return nil, nil
		},
	}, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	h.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchHandler_SearchFailure(t *testing.T) {
	h := NewSearchHandler(&mockSearchService{
		searchFn: func(ctx context.Context, query string) ([]model.SearchResult, error) {
			return nil, errors.New("yt-dlp exploded")
		},
	}, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=boom", nil)
	h.Search(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp searchErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error body: %v", err)
	}
	if resp.Query != "boom" {
		t.Errorf("Query = %q, want boom", resp.Query)
	}
}

func TestSearchHandler_EmptyResults(t *testing.T) {
	h := NewSearchHandler(&mockSearchService{
		searchFn: func(ctx context.Context, query string) ([]model.SearchResult, error) {
			return nil, nil
		},
	}, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=xyzzy", nil)
	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// An empty result set is a JSON array, not null.
	if got := rec.Body.String(); got != "[]\n" && got != "[]" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}
