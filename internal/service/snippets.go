// Package service orchestrates the build run (ingestion, link resolution,
// catalog, text index) and wires the query engine's collaborators.
package service

import (
	"context"
	"strings"

	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

// Snippet source geometry: the hit line is widened with neighbors until it
// reaches a readable length.
const (
	snippetNeighborWindow = 4
	snippetMinLength      = 280
)

// StoreSnippetProvider pulls snippet sources from the relational store,
// widening short lines with their neighbors.
type StoreSnippetProvider struct {
	store *sqlite.Store
}

// NewStoreSnippetProvider creates a provider over an open store.
func NewStoreSnippetProvider(store *sqlite.Store) *StoreSnippetProvider {
	return &StoreSnippetProvider{store: store}
}

// SnippetSource returns the hit line's content, concatenated with up to
// four neighbors on each side when the line alone is shorter than the
// minimum snippet length.
func (p *StoreSnippetProvider) SnippetSource(ctx context.Context, lineID int64) (string, error) {
	center, err := p.store.GetLine(ctx, lineID)
	if err != nil || center == nil {
		return "", err
	}
	if len(center.Content) >= snippetMinLength {
		return center.Content, nil
	}

	neighbors, err := p.store.LinesAround(ctx, lineID, snippetNeighborWindow)
	if err != nil {
		return center.Content, nil
	}

	// Grow outward from the hit line so it stays inside the window.
	centerPos := 0
	for i, l := range neighbors {
		if l.ID == lineID {
			centerPos = i
			break
		}
	}

	parts := []string{neighbors[centerPos].Content}
	length := len(parts[0])
	for offset := 1; length < snippetMinLength; offset++ {
		grew := false
		if i := centerPos - offset; i >= 0 {
			parts = append([]string{neighbors[i].Content}, parts...)
			length += len(neighbors[i].Content)
			grew = true
		}
		if i := centerPos + offset; i < len(neighbors) {
			parts = append(parts, neighbors[i].Content)
			length += len(neighbors[i].Content)
			grew = true
		}
		if !grew {
			break
		}
	}
	return strings.Join(parts, " "), nil
}
