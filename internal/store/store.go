// Package store persists scan records and answers title-filtered listings.
package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"snapscreen/internal/errors"
	"snapscreen/internal/types"

	"github.com/google/uuid"
)

// errNotFound is only a comparison target. Errors returned to callers are
// built fresh by notFound, so nothing ever writes to it.
var errNotFound = errors.NewNotFoundError(errors.ErrCodeScanNotFound, "scan not found", nil)

// IsNotFound reports whether err comes from a lookup of an unknown scan id.
func IsNotFound(err error) bool {
	return stderrors.Is(err, errNotFound)
}

// Store is the scan record store
type Store interface {
	// List returns summaries whose title contains filter, ignoring case.
	// A blank filter returns every scan. Otherwise the filter is matched as
	// given, surrounding spaces included.
	List(ctx context.Context, filter string) ([]types.ScanSummary, error)
	// Get returns the full scan, or an error for which IsNotFound is true.
	Get(ctx context.Context, id string) (*types.ScanDetail, error)
	// Save creates or replaces a scan. A missing id is generated.
	Save(ctx context.Context, detail *types.ScanDetail) error
	// Delete removes a scan, or returns an error for which IsNotFound is true.
	Delete(ctx context.Context, id string) error
	Close() error
}

// notFound builds a not-found error carrying the id.
func notFound(id string) error {
	return errors.NewNotFoundError(errors.ErrCodeScanNotFound, fmt.Sprintf("scan %q not found", id), nil).
		WithContext("scan_id", id)
}

// BlankFilter reports whether filter selects every scan.
func BlankFilter(filter string) bool {
	return strings.TrimSpace(filter) == ""
}

// MatchesTitle reports whether title contains filter, ignoring case.
func MatchesTitle(title, filter string) bool {
	if BlankFilter(filter) {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(filter))
}

// prepare assigns an id when missing, recomputes derived totals and validates the record.
func prepare(detail *types.ScanDetail) error {
	if detail == nil {
		return errors.NewValidationError(errors.ErrCodeInvalidScan, "scan is required", nil)
	}
	if strings.TrimSpace(detail.ID) == "" {
		detail.ID = uuid.NewString()
	}
	detail.Normalize()
	if err := detail.Validate(); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidScan, "invalid scan", err).
			WithContext("scan_id", detail.ID)
	}
	return nil
}

// sortNewestFirst orders summaries by scan date, newest first. Scans from the
// same day keep their relative order.
func sortNewestFirst(summaries []types.ScanSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Date > summaries[j].Date
	})
}

// clone deep-copies a detail so callers never share slices with the store.
func clone(d types.ScanDetail) *types.ScanDetail {
	out := d
	out.Categories = make([]types.CheckCategory, len(d.Categories))
	for i, cat := range d.Categories {
		out.Categories[i] = cat
		out.Categories[i].Checks = append([]types.ScanCheck(nil), cat.Checks...)
	}
	out.HardSkills = append([]types.SkillMatch(nil), d.HardSkills...)
	out.SoftSkills = append([]types.SkillMatch(nil), d.SoftSkills...)
	return &out
}
