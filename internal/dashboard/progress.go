package dashboard

import (
	"math"
	"sort"
	"time"

	"snapscreen/internal/types"
)

// HeatmapWeeks is the number of week columns in the activity heatmap.
const HeatmapWeeks = 53

// MaxActivityLevel is the highest heatmap intensity.
const MaxActivityLevel = 4

// CompanyStats aggregates the scans made for one company
type CompanyStats struct {
	Company      string          `json:"company"`
	Count        int             `json:"count"`
	AverageScore int             `json:"averageScore"`
	Tier         types.ScoreTier `json:"tier"`
}

// ActivityDay is one heatmap cell
type ActivityDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

// Progress is the all-time summary over a user's scans
type Progress struct {
	TotalScans   int                `json:"totalScans"`
	AverageScore int                `json:"averageScore"`
	AverageTier  types.ScoreTier    `json:"averageTier"`
	RecentScan   *types.ScanSummary `json:"recentScan,omitempty"`
	Companies    []CompanyStats     `json:"companies"`
	// Heatmap holds Sunday-first weeks, oldest first. The last week ends today.
	Heatmap [][]ActivityDay `json:"heatmap"`
}

// BuildProgress summarizes scans as of now.
func BuildProgress(summaries []types.ScanSummary, now time.Time) Progress {
	p := Progress{
		TotalScans: len(summaries),
		Companies:  []CompanyStats{},
	}

	if len(summaries) > 0 {
		total := 0
		for i := range summaries {
			total += summaries[i].Score
			if p.RecentScan == nil || summaries[i].Date > p.RecentScan.Date {
				recent := summaries[i]
				p.RecentScan = &recent
			}
		}
		p.AverageScore = int(math.Round(float64(total) / float64(len(summaries))))
	}
	p.AverageTier = types.TierFor(p.AverageScore)

	p.Companies = companyStats(summaries)
	p.Heatmap = heatmap(summaries, now)
	return p
}

func companyStats(summaries []types.ScanSummary) []CompanyStats {
	type acc struct{ count, total int }
	byCompany := make(map[string]*acc)
	for _, s := range summaries {
		if s.Company == "" {
			continue
		}
		a, ok := byCompany[s.Company]
		if !ok {
			a = &acc{}
			byCompany[s.Company] = a
		}
		a.count++
		a.total += s.Score
	}

	out := make([]CompanyStats, 0, len(byCompany))
	for company, a := range byCompany {
		avg := int(math.Round(float64(a.total) / float64(a.count)))
		out = append(out, CompanyStats{
			Company:      company,
			Count:        a.count,
			AverageScore: avg,
			Tier:         types.TierFor(avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Company < out[j].Company
	})
	return out
}

func heatmap(summaries []types.ScanSummary, now time.Time) [][]ActivityDay {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	start := weekStart.AddDate(0, 0, -7*(HeatmapWeeks-1))

	counts := make(map[string]int)
	for _, s := range summaries {
		d, err := time.Parse(types.DateLayout, s.Date)
		if err != nil || d.Before(start) || d.After(today) {
			continue
		}
		counts[s.Date]++
	}

	weeks := make([][]ActivityDay, 0, HeatmapWeeks)
	for w := 0; w < HeatmapWeeks; w++ {
		week := make([]ActivityDay, 0, 7)
		for d := 0; d < 7; d++ {
			day := start.AddDate(0, 0, w*7+d)
			if day.After(today) {
				break
			}
			key := day.Format(types.DateLayout)
			week = append(week, ActivityDay{Date: key, Count: counts[key], Level: ActivityLevel(counts[key])})
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// ActivityLevel maps a day's scan count onto the 0-4 heatmap scale.
func ActivityLevel(count int) int {
	if count <= 0 {
		return 0
	}
	if count > MaxActivityLevel {
		return MaxActivityLevel
	}
	return count
}
