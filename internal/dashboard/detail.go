package dashboard

import (
	"context"
	"strings"

	"snapscreen/internal/errors"
	"snapscreen/internal/store"
	"snapscreen/internal/types"
)

// DetailSource resolves a scan id to its detail
type DetailSource interface {
	Resolve(ctx context.Context, id string) (*types.ScanDetail, error)
}

// Resolver resolves scan ids against a store
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver over a store
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns the detail of id. Unknown ids yield an error for which store.IsNotFound is true.
func (r *Resolver) Resolve(ctx context.Context, id string) (*types.ScanDetail, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "scan id is required", nil)
	}
	return r.store.Get(ctx, id)
}

// DetailKind is the state of the detail pane
type DetailKind string

const (
	KindNoSelection DetailKind = "no_selection"
	KindLoading     DetailKind = "loading"
	KindNotFound    DetailKind = "not_found"
	KindReady       DetailKind = "ready"
	KindFailed      DetailKind = "failed"
)

// CategoryView is a category with its per-status counts
type CategoryView struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Counts types.StatusCounts `json:"counts"`
}

// DetailView is a resolved scan with everything the detail pane derives from it
type DetailView struct {
	Scan       *types.ScanDetail    `json:"scan"`
	Tier       types.ScoreTier      `json:"tier"`
	Overall    types.StatusCounts   `json:"overall"`
	Categories []CategoryView       `json:"categories"`
	HardSkills types.SkillAggregate `json:"hardSkills"`
	SoftSkills types.SkillAggregate `json:"softSkills"`
}

// NewDetailView computes the derived counts of a scan.
func NewDetailView(d *types.ScanDetail) *DetailView {
	view := &DetailView{
		Scan:       d,
		Tier:       types.TierFor(d.Score),
		Overall:    types.CountAllByStatus(*d),
		Categories: make([]CategoryView, 0, len(d.Categories)),
		HardSkills: types.AggregateSkills(d.HardSkills),
		SoftSkills: types.AggregateSkills(d.SoftSkills),
	}
	for _, cat := range d.Categories {
		view.Categories = append(view.Categories, CategoryView{
			ID:     cat.ID,
			Name:   cat.Name,
			Counts: types.CountCategory(cat),
		})
	}
	return view
}

// DetailState is what the detail pane shows for a selection
type DetailState struct {
	Kind   DetailKind  `json:"state"`
	ScanID string      `json:"scanId,omitempty"`
	View   *DetailView `json:"view,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ViewFor resolves the selection synchronously.
func ViewFor(ctx context.Context, source DetailSource, sel Selection) DetailState {
	id, ok := sel.ID()
	if !ok {
		return DetailState{Kind: KindNoSelection}
	}

	d, err := source.Resolve(ctx, id)
	switch {
	case err == nil:
		return DetailState{Kind: KindReady, ScanID: id, View: NewDetailView(d)}
	case store.IsNotFound(err):
		return DetailState{Kind: KindNotFound, ScanID: id, Error: "scan not found"}
	default:
		return DetailState{Kind: KindFailed, ScanID: id, Error: err.Error()}
	}
}
