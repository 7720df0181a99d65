package types

import "time"

// DateLayout is the wire and storage format for scan dates.
const DateLayout = "2006-01-02"

// ScanSummary is the lightweight listing record shown in the sidebar
type ScanSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
	Date    string `json:"date"`
	Score   int    `json:"score"`
}

// ScanDetail is the full result of one resume scan
type ScanDetail struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Company       string          `json:"company,omitempty"`
	FileName      string          `json:"fileName"`
	DateScanned   string          `json:"dateScanned"`
	Score         int             `json:"score"`
	PassingChecks int             `json:"passingChecks"`
	TotalChecks   int             `json:"totalChecks"`
	Categories    []CheckCategory `json:"categories"`
	HardSkills    []SkillMatch    `json:"hardSkills"`
	SoftSkills    []SkillMatch    `json:"softSkills"`
}

// CheckCategory groups related checks, e.g. "Searchability" or "Formatting"
type CheckCategory struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Checks []ScanCheck `json:"checks"`
}

// ScanCheck is one evaluated rule with its outcome
type ScanCheck struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Feedback string      `json:"feedback"`
}

// SkillMatch compares how often a skill appears in the resume and in the job description
type SkillMatch struct {
	Name                string `json:"name"`
	ResumeCount         int    `json:"resumeCount"`
	JobDescriptionCount int    `json:"jobDescriptionCount"`
}

// SkillStatus is the per-skill presence label
type SkillStatus string

const (
	SkillFound   SkillStatus = "Found"
	SkillMissing SkillStatus = "Missing"
)

// Status reports Found when the resume mentions the skill at least once.
func (s SkillMatch) Status() SkillStatus {
	if s.ResumeCount > 0 {
		return SkillFound
	}
	return SkillMissing
}

// Summary derives the listing record for a detail.
func (d ScanDetail) Summary() ScanSummary {
	return ScanSummary{
		ID:      d.ID,
		Title:   d.Title,
		Company: d.Company,
		Date:    d.DateScanned,
		Score:   d.Score,
	}
}

// ScannedAt parses DateScanned. The zero time is returned for unparsable dates.
func (d ScanDetail) ScannedAt() time.Time {
	t, err := time.Parse(DateLayout, d.DateScanned)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ScanInput is what the analyzer needs to produce a ScanDetail
type ScanInput struct {
	Title          string `json:"title"`
	Company        string `json:"company,omitempty"`
	FileName       string `json:"fileName"`
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}
