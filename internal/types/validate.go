package types

import (
	"fmt"
	"strings"
	"time"
)

// Normalize clamps the score and recomputes the check totals from the categories.
func (d *ScanDetail) Normalize() {
	d.Score = ClampScore(d.Score)
	counts := CountAllByStatus(*d)
	d.PassingChecks = counts.Pass
	d.TotalChecks = 0
	for _, cat := range d.Categories {
		d.TotalChecks += len(cat.Checks)
	}
}

// Validate checks the structural invariants of a scan detail.
func (d ScanDetail) Validate() error {
	var problems []string

	if strings.TrimSpace(d.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		problems = append(problems, "title is required")
	}
	if _, err := time.Parse(DateLayout, d.DateScanned); err != nil {
		problems = append(problems, fmt.Sprintf("dateScanned %q is not a %s date", d.DateScanned, DateLayout))
	}
	if d.Score < MinScore || d.Score > MaxScore {
		problems = append(problems, fmt.Sprintf("score %d outside [%d,%d]", d.Score, MinScore, MaxScore))
	}

	total := 0
	for _, cat := range d.Categories {
		for _, c := range cat.Checks {
			total++
			if !c.Status.IsValid() {
				problems = append(problems, fmt.Sprintf("check %s/%s has invalid status", cat.ID, c.ID))
			}
		}
	}
	if d.TotalChecks != total {
		problems = append(problems, fmt.Sprintf("totalChecks %d does not match %d checks", d.TotalChecks, total))
	}
	if d.PassingChecks < 0 || d.PassingChecks > d.TotalChecks {
		problems = append(problems, fmt.Sprintf("passingChecks %d outside [0,%d]", d.PassingChecks, d.TotalChecks))
	}

	for _, s := range append(append([]SkillMatch{}, d.HardSkills...), d.SoftSkills...) {
		if s.ResumeCount < 0 || s.JobDescriptionCount < 0 {
			problems = append(problems, fmt.Sprintf("skill %q has a negative count", s.Name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid scan detail: %s", strings.Join(problems, "; "))
	}
	return nil
}
