package dashboard

import (
	"context"

	"snapscreen/internal/store"
	"snapscreen/internal/types"
)

// SidebarItem is one listed scan with its score tier
type SidebarItem struct {
	types.ScanSummary
	Tier     types.ScoreTier `json:"tier"`
	Selected bool            `json:"selected"`
}

// SidebarView is the filtered scan list. Empty is set when nothing matched.
type SidebarView struct {
	Filter string        `json:"filter"`
	Items  []SidebarItem `json:"items"`
	Empty  bool          `json:"empty"`
}

// Sidebar lists scans for the dashboard
type Sidebar struct {
	store store.Store
}

// NewSidebar creates a sidebar over a store
func NewSidebar(s store.Store) *Sidebar {
	return &Sidebar{store: s}
}

// Items lists the scans matching filter and marks the selected one.
func (s *Sidebar) Items(ctx context.Context, filter string, sel Selection) (SidebarView, error) {
	summaries, err := s.store.List(ctx, filter)
	if err != nil {
		return SidebarView{}, err
	}

	view := SidebarView{
		Filter: filter,
		Items:  make([]SidebarItem, 0, len(summaries)),
	}
	for _, sum := range summaries {
		view.Items = append(view.Items, SidebarItem{
			ScanSummary: sum,
			Tier:        types.TierFor(sum.Score),
			Selected:    sel.IsSelected(sum.ID),
		})
	}
	view.Empty = len(view.Items) == 0
	return view, nil
}
