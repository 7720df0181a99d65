package formatters

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"snapscreen/internal/dashboard"
	"snapscreen/internal/resumes"
	"snapscreen/internal/store"
	"snapscreen/internal/types"
)

func sampleView(t *testing.T) *dashboard.DetailView {
	t.Helper()
	scans := store.SampleScans()
	if len(scans) == 0 {
		t.Fatal("no sample scans")
	}
	return dashboard.NewDetailView(&scans[0])
}

func TestFormatScanText(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleView(t), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"=== SOFTWARE ENGINEER RESUME ===",
		"Score: 82/100 (good)",
		"12 passed, 3 failed, 2 need attention",
		"=== SEARCHABILITY",
		"[Needs Attention]",
		"=== HARD SKILLS",
		"JAVASCRIPT",
	} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatScanMarkdown(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleView(t), "markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "# Software Engineer Resume\n") {
		t.Errorf("unexpected heading:\n%s", out)
	}
	if !strings.Contains(out, "| Skill | Resume | Job Description | Status |") {
		t.Errorf("missing skills table:\n%s", out)
	}
}

func TestFormatJSONFallsBackForAnyType(t *testing.T) {
	view := sampleView(t)
	out, err := GlobalRegistry.Format(view, "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["tier"] != "good" {
		t.Errorf("tier = %v, want good", decoded["tier"])
	}

	if _, err := GlobalRegistry.Format(map[string]int{"a": 1}, "json"); err != nil {
		t.Errorf("json should accept any value: %v", err)
	}
}

func TestFormatUnknown(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleView(t), "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := GlobalRegistry.Format(42, "text"); err == nil {
		t.Error("expected error for a type without a text formatter")
	}
}

func TestFormatScanList(t *testing.T) {
	view := dashboard.SidebarView{
		Items: []dashboard.SidebarItem{
			{ScanSummary: types.ScanSummary{ID: "1", Title: "Software Engineer Resume", Company: "Google", Date: "2023-10-15", Score: 82}, Tier: types.TierGood, Selected: true},
			{ScanSummary: types.ScanSummary{ID: "3", Title: "Full Stack Developer", Company: "Amazon", Date: "2023-08-30", Score: 68}, Tier: types.TierPoor},
		},
	}
	out, err := GlobalRegistry.Format(view, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Software Engineer Resume", "82 (good)", "68 (poor)", ">"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	empty, err := GlobalRegistry.Format(dashboard.SidebarView{Filter: "zzz", Empty: true}, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty != "No scans match \"zzz\".\n" {
		t.Errorf("empty output = %q", empty)
	}
}

func TestFormatProgress(t *testing.T) {
	now := time.Date(2023, 10, 20, 0, 0, 0, 0, time.UTC)
	var summaries []types.ScanSummary
	for _, s := range store.SampleScans() {
		summaries = append(summaries, s.Summary())
	}
	p := dashboard.BuildProgress(summaries, now)

	out, err := GlobalRegistry.Format(p, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Total scans: 5") {
		t.Errorf("missing total:\n%s", out)
	}
	if !strings.Contains(out, "=== ACTIVITY ===") {
		t.Errorf("missing heatmap:\n%s", out)
	}

	heatmap := out[strings.Index(out, "=== ACTIVITY ===\n")+len("=== ACTIVITY ===\n"):]
	rows := strings.Split(strings.TrimRight(heatmap, "\n"), "\n")
	if len(rows) != 7 {
		t.Errorf("heatmap has %d rows, want 7", len(rows))
	}

	md, err := GlobalRegistry.Format(p, "markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md, "## Applications by Company") {
		t.Errorf("markdown missing companies:\n%s", md)
	}
}

func TestFormatResume(t *testing.T) {
	info := &resumes.Info{
		ObjectKey:   "resumes/u1/resume.pdf",
		FileName:    "jane_doe_resume.pdf",
		ContentType: "application/pdf",
		Size:        2048,
		UploadedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	out, err := GlobalRegistry.Format(info, "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Size: 2.0 KB") || !strings.Contains(out, "resumes/u1/resume.pdf") {
		t.Errorf("unexpected resume output:\n%s", out)
	}
}

func TestGetSupportedFormats(t *testing.T) {
	got := strings.Join(GlobalRegistry.GetSupportedFormats(), ",")
	if got != "json,markdown,text" {
		t.Errorf("formats = %s", got)
	}
}
