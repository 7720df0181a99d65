package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"snapscreen/internal/dashboard"
	"snapscreen/internal/resumes"
	"snapscreen/internal/types"
	"snapscreen/internal/utils"

	"github.com/olekukonko/tablewriter"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// Data type keys used by the registry
const (
	TypeAny      = "any"
	TypeScan     = "ScanDetail"
	TypeScanList = "ScanList"
	TypeProgress = "Progress"
	TypeResume   = "Resume"
)

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	registry.RegisterFormatter("text", TypeScan, &ScanTextFormatter{})
	registry.RegisterFormatter("markdown", TypeScan, &ScanMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeScanList, &ScanListTextFormatter{})
	registry.RegisterFormatter("markdown", TypeScanList, &ScanListMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeProgress, &ProgressTextFormatter{})
	registry.RegisterFormatter("markdown", TypeProgress, &ProgressMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeResume, &ResumeTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *dashboard.DetailView:
		return TypeScan
	case dashboard.SidebarView:
		return TypeScanList
	case dashboard.Progress:
		return TypeProgress
	case *resumes.Info:
		return TypeResume
	default:
		return TypeAny
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}

// ScanTextFormatter handles text formatting for a scan detail
type ScanTextFormatter struct{}

func (f *ScanTextFormatter) Format(data any) (string, error) {
	view, ok := data.(*dashboard.DetailView)
	if !ok || view == nil || view.Scan == nil {
		return "", fmt.Errorf("expected *dashboard.DetailView, got %T", data)
	}
	scan := view.Scan

	var output strings.Builder
	output.WriteString("=== " + strings.ToUpper(scan.Title) + " ===\n")
	if scan.Company != "" {
		output.WriteString("Company: " + scan.Company + "\n")
	}
	output.WriteString(fmt.Sprintf("File: %s\nScanned: %s\n", scan.FileName, scan.DateScanned))
	output.WriteString(fmt.Sprintf("Score: %d/100 (%s)\n", scan.Score, view.Tier))
	output.WriteString(fmt.Sprintf("Checks: %d passed, %d failed, %d need attention (%d/%d passing)\n\n",
		view.Overall.Pass, view.Overall.Fail, view.Overall.NeedsAttention, scan.PassingChecks, scan.TotalChecks))

	for i, cat := range scan.Categories {
		counts := view.Categories[i].Counts
		output.WriteString(fmt.Sprintf("=== %s (%d pass, %d fail, %d attention) ===\n",
			strings.ToUpper(cat.Name), counts.Pass, counts.Fail, counts.NeedsAttention))
		for _, c := range cat.Checks {
			output.WriteString(fmt.Sprintf("[%s] %s\n", c.Status.Label(), c.Name))
			if c.Feedback != "" {
				output.WriteString("    " + c.Feedback + "\n")
			}
		}
		output.WriteString("\n")
	}

	writeSkillsText(&output, "HARD SKILLS", scan.HardSkills, view.HardSkills)
	writeSkillsText(&output, "SOFT SKILLS", scan.SoftSkills, view.SoftSkills)
	return output.String(), nil
}

func (f *ScanTextFormatter) SupportedType() string {
	return TypeScan
}

func writeSkillsText(output *strings.Builder, title string, skills []types.SkillMatch, agg types.SkillAggregate) {
	output.WriteString(fmt.Sprintf("=== %s (%d found, %d missing) ===\n", title, agg.FoundCount, agg.MissingCount))
	if len(skills) == 0 {
		output.WriteString("No skills detected.\n\n")
		return
	}
	table := newTable(output, []string{"Skill", "Resume", "Job Description", "Status"})
	for _, s := range skills {
		table.Append([]string{s.Name, fmt.Sprint(s.ResumeCount), fmt.Sprint(s.JobDescriptionCount), string(s.Status())})
	}
	table.Render()
	output.WriteString("\n")
}

// ScanMarkdownFormatter handles markdown formatting for a scan detail
type ScanMarkdownFormatter struct{}

func (f *ScanMarkdownFormatter) Format(data any) (string, error) {
	view, ok := data.(*dashboard.DetailView)
	if !ok || view == nil || view.Scan == nil {
		return "", fmt.Errorf("expected *dashboard.DetailView, got %T", data)
	}
	scan := view.Scan

	var output strings.Builder
	output.WriteString("# " + scan.Title + "\n\n")
	if scan.Company != "" {
		output.WriteString("**Company:** " + scan.Company + "  \n")
	}
	output.WriteString(fmt.Sprintf("**File:** %s  \n**Scanned:** %s  \n", scan.FileName, scan.DateScanned))
	output.WriteString(fmt.Sprintf("**Score:** %d/100 (%s)  \n", scan.Score, view.Tier))
	output.WriteString(fmt.Sprintf("**Passing checks:** %d of %d\n\n", scan.PassingChecks, scan.TotalChecks))

	for i, cat := range scan.Categories {
		counts := view.Categories[i].Counts
		output.WriteString(fmt.Sprintf("## %s\n\n%d pass, %d fail, %d need attention\n\n",
			cat.Name, counts.Pass, counts.Fail, counts.NeedsAttention))
		for _, c := range cat.Checks {
			output.WriteString(fmt.Sprintf("- **%s** (%s): %s\n", c.Name, c.Status.Label(), c.Feedback))
		}
		output.WriteString("\n")
	}

	writeSkillsMarkdown(&output, "Hard Skills", scan.HardSkills)
	writeSkillsMarkdown(&output, "Soft Skills", scan.SoftSkills)
	return output.String(), nil
}

func (f *ScanMarkdownFormatter) SupportedType() string {
	return TypeScan
}

func writeSkillsMarkdown(output *strings.Builder, title string, skills []types.SkillMatch) {
	output.WriteString("## " + title + "\n\n")
	if len(skills) == 0 {
		output.WriteString("No skills detected.\n\n")
		return
	}
	output.WriteString("| Skill | Resume | Job Description | Status |\n|---|---|---|---|\n")
	for _, s := range skills {
		output.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", s.Name, s.ResumeCount, s.JobDescriptionCount, s.Status()))
	}
	output.WriteString("\n")
}

// ScanListTextFormatter handles text formatting for the scan list
type ScanListTextFormatter struct{}

func (f *ScanListTextFormatter) Format(data any) (string, error) {
	view, ok := data.(dashboard.SidebarView)
	if !ok {
		return "", fmt.Errorf("expected dashboard.SidebarView, got %T", data)
	}
	if view.Empty {
		return emptyListMessage(view.Filter) + "\n", nil
	}

	var output strings.Builder
	table := newTable(&output, []string{"", "ID", "Title", "Company", "Date", "Score"})
	for _, item := range view.Items {
		marker := ""
		if item.Selected {
			marker = ">"
		}
		table.Append([]string{marker, item.ID, item.Title, item.Company, item.Date,
			fmt.Sprintf("%d (%s)", item.Score, item.Tier)})
	}
	table.Render()
	return output.String(), nil
}

func (f *ScanListTextFormatter) SupportedType() string {
	return TypeScanList
}

// ScanListMarkdownFormatter handles markdown formatting for the scan list
type ScanListMarkdownFormatter struct{}

func (f *ScanListMarkdownFormatter) Format(data any) (string, error) {
	view, ok := data.(dashboard.SidebarView)
	if !ok {
		return "", fmt.Errorf("expected dashboard.SidebarView, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Resume Scans\n\n")
	if view.Empty {
		output.WriteString(emptyListMessage(view.Filter) + "\n")
		return output.String(), nil
	}
	output.WriteString("| ID | Title | Company | Date | Score |\n|---|---|---|---|---|\n")
	for _, item := range view.Items {
		output.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d |\n", item.ID, item.Title, item.Company, item.Date, item.Score))
	}
	return output.String(), nil
}

func (f *ScanListMarkdownFormatter) SupportedType() string {
	return TypeScanList
}

func emptyListMessage(filter string) string {
	if strings.TrimSpace(filter) == "" {
		return "No scans yet."
	}
	return fmt.Sprintf("No scans match %q.", filter)
}

// heatmapGlyphs renders activity levels 0 through 4
var heatmapGlyphs = []string{"·", "░", "▒", "▓", "█"}

// ProgressTextFormatter handles text formatting for progress summaries
type ProgressTextFormatter struct{}

func (f *ProgressTextFormatter) Format(data any) (string, error) {
	p, ok := data.(dashboard.Progress)
	if !ok {
		return "", fmt.Errorf("expected dashboard.Progress, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== PROGRESS ===\n")
	output.WriteString(fmt.Sprintf("Total scans: %d\n", p.TotalScans))
	output.WriteString(fmt.Sprintf("Average score: %d/100 (%s)\n", p.AverageScore, p.AverageTier))
	if p.RecentScan != nil {
		output.WriteString(fmt.Sprintf("Most recent: %s (%s, %d/100)\n", p.RecentScan.Title, p.RecentScan.Date, p.RecentScan.Score))
	}
	output.WriteString("\n")

	if len(p.Companies) > 0 {
		output.WriteString("=== APPLICATIONS BY COMPANY ===\n")
		table := newTable(&output, []string{"Company", "Scans", "Average"})
		for _, c := range p.Companies {
			table.Append([]string{c.Company, fmt.Sprint(c.Count), fmt.Sprintf("%d (%s)", c.AverageScore, c.Tier)})
		}
		table.Render()
		output.WriteString("\n")
	}

	output.WriteString("=== ACTIVITY ===\n")
	writeHeatmap(&output, p.Heatmap)
	return output.String(), nil
}

func (f *ProgressTextFormatter) SupportedType() string {
	return TypeProgress
}

// writeHeatmap prints one row per weekday and one column per week.
func writeHeatmap(output *strings.Builder, weeks [][]dashboard.ActivityDay) {
	for day := 0; day < 7; day++ {
		for _, week := range weeks {
			if day >= len(week) {
				output.WriteString(" ")
				continue
			}
			level := min(max(week[day].Level, 0), dashboard.MaxActivityLevel)
			output.WriteString(heatmapGlyphs[level])
		}
		output.WriteString("\n")
	}
}

// ProgressMarkdownFormatter handles markdown formatting for progress summaries
type ProgressMarkdownFormatter struct{}

func (f *ProgressMarkdownFormatter) Format(data any) (string, error) {
	p, ok := data.(dashboard.Progress)
	if !ok {
		return "", fmt.Errorf("expected dashboard.Progress, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Progress\n\n")
	output.WriteString(fmt.Sprintf("- **Total scans:** %d\n", p.TotalScans))
	output.WriteString(fmt.Sprintf("- **Average score:** %d/100\n", p.AverageScore))
	if p.RecentScan != nil {
		output.WriteString(fmt.Sprintf("- **Most recent:** %s (%s)\n", p.RecentScan.Title, p.RecentScan.Date))
	}
	output.WriteString("\n")

	if len(p.Companies) > 0 {
		output.WriteString("## Applications by Company\n\n| Company | Scans | Average |\n|---|---|---|\n")
		for _, c := range p.Companies {
			output.WriteString(fmt.Sprintf("| %s | %d | %d |\n", c.Company, c.Count, c.AverageScore))
		}
		output.WriteString("\n")
	}

	output.WriteString("## Activity\n\n```\n")
	writeHeatmap(&output, p.Heatmap)
	output.WriteString("```\n")
	return output.String(), nil
}

func (f *ProgressMarkdownFormatter) SupportedType() string {
	return TypeProgress
}

// ResumeTextFormatter handles text formatting for stored resume info
type ResumeTextFormatter struct{}

func (f *ResumeTextFormatter) Format(data any) (string, error) {
	info, ok := data.(*resumes.Info)
	if !ok || info == nil {
		return "", fmt.Errorf("expected *resumes.Info, got %T", data)
	}
	return fmt.Sprintf("Resume: %s\nObject key: %s\nType: %s\nSize: %s\nUploaded: %s\n",
		info.FileName, info.ObjectKey, info.ContentType, utils.FormatFileSize(info.Size),
		info.UploadedAt.Format("2006-01-02 15:04 MST")), nil
}

func (f *ResumeTextFormatter) SupportedType() string {
	return TypeResume
}

func newTable(output *strings.Builder, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(output)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	return table
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
