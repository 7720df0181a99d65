package analyzer

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"snapscreen/internal/errors"
	"snapscreen/internal/types"

	"github.com/google/uuid"
)

// Score weights: checks make up 60% of the score, requested skills 40%.
const (
	checkWeight = 0.6
	skillWeight = 0.4
)

var (
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern   = regexp.MustCompile(`(\+?\d{1,3}[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	addressPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z .]+,\s*[A-Z]{2}\b|\b\d{5}(-\d{4})?\b`)

	monthYearPattern   = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{4}\b`)
	numericDatePattern = regexp.MustCompile(`\b(0?[1-9]|1[0-2])/\d{4}\b`)

	bulletPattern = regexp.MustCompile(`(?m)^\s*([-*•◦▪]|\d+\.)\s+\S`)
	metricPattern = regexp.MustCompile(`\d+(\.\d+)?\s?%|\$\s?\d[\d,]*(\.\d+)?\s?[kKmMbB]?\b|\b\d+[xX]\b|\b\d{1,3}(,\d{3})+\b`)
	headingLine   = regexp.MustCompile(`^[\p{L} &/]+:?$`)
)

var actionVerbs = []string{
	"achieved", "architected", "automated", "built", "created", "delivered", "designed",
	"developed", "drove", "improved", "implemented", "increased", "launched", "led",
	"managed", "mentored", "migrated", "optimized", "reduced", "shipped", "streamlined",
}

// RulesAnalyzer scores resumes with deterministic text rules
type RulesAnalyzer struct {
	now   func() time.Time
	newID func() string
}

// NewRulesAnalyzer creates a rules analyzer that dates scans with the current day
func NewRulesAnalyzer() *RulesAnalyzer {
	return &RulesAnalyzer{now: time.Now, newID: uuid.NewString}
}

var _ Analyzer = (*RulesAnalyzer)(nil)

func (r *RulesAnalyzer) Name() string { return "rules" }

func (r *RulesAnalyzer) Info(context.Context) *ModelInfo {
	return &ModelInfo{Name: "rules", Provider: "rules", DisplayName: "Built-in ATS rules", Available: true}
}

func (r *RulesAnalyzer) Close() error { return nil }

// Analyze runs every rule against input.
func (r *RulesAnalyzer) Analyze(ctx context.Context, input types.ScanInput) (*types.ScanDetail, *TokenUsage, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	input, err := checkInput(input)
	if err != nil {
		return nil, nil, err
	}

	detail := &types.ScanDetail{
		ID:          r.newID(),
		Title:       input.Title,
		Company:     input.Company,
		FileName:    input.FileName,
		DateScanned: r.now().Format(types.DateLayout),
		Categories: []types.CheckCategory{
			{ID: "searchability", Name: "Searchability", Checks: searchabilityChecks(input)},
			{ID: "formatting", Name: "Formatting", Checks: formattingChecks(input.ResumeText)},
			{ID: "recruiter-tips", Name: "Recruiter Tips", Checks: recruiterChecks(input.ResumeText)},
		},
		HardSkills: matchSkills(hardSkillLexicon, input.ResumeText, input.JobDescription),
		SoftSkills: matchSkills(softSkillLexicon, input.ResumeText, input.JobDescription),
	}
	detail.Score = score(detail)
	detail.Normalize()

	if err := detail.Validate(); err != nil {
		return nil, nil, errors.NewInternalError(errors.ErrCodeInvalidScan, "rules produced an invalid scan", err)
	}
	return detail, nil, nil
}

// score weighs the check pass ratio (needs-attention counts half) against the
// share of requested skills the resume mentions.
func score(d *types.ScanDetail) int {
	counts := types.CountAllByStatus(*d)
	if counts.Total() == 0 {
		return 0
	}
	checkRatio := (float64(counts.Pass) + 0.5*float64(counts.NeedsAttention)) / float64(counts.Total())

	requested, found := 0, 0
	for _, s := range append(append([]types.SkillMatch{}, d.HardSkills...), d.SoftSkills...) {
		if s.JobDescriptionCount > 0 {
			requested++
			if s.ResumeCount > 0 {
				found++
			}
		}
	}
	skillRatio := checkRatio
	if requested > 0 {
		skillRatio = float64(found) / float64(requested)
	}

	return types.ClampScore(int(math.Round(100 * (checkWeight*checkRatio + skillWeight*skillRatio))))
}

func check(id, name string, status types.CheckStatus, feedback string) types.ScanCheck {
	return types.ScanCheck{ID: id, Name: name, Status: status, Feedback: feedback}
}

func searchabilityChecks(in types.ScanInput) []types.ScanCheck {
	resume := in.ResumeText
	checks := make([]types.ScanCheck, 0, 10)

	if emailPattern.MatchString(resume) {
		checks = append(checks, check("contact-email", "Contact Information: Email", types.StatusPass,
			"Your email address was found."))
	} else {
		checks = append(checks, check("contact-email", "Contact Information: Email", types.StatusFail,
			"No email address was found. Recruiters need a way to reach you."))
	}

	if phonePattern.MatchString(resume) {
		checks = append(checks, check("contact-phone", "Contact Information: Phone", types.StatusPass,
			"Your phone number was found."))
	} else {
		checks = append(checks, check("contact-phone", "Contact Information: Phone", types.StatusFail,
			"No phone number was found. Add one near the top of your resume."))
	}

	if addressPattern.MatchString(resume) {
		checks = append(checks, check("contact-address", "Contact Information: Address", types.StatusPass,
			"Your location was found. Recruiters use it to match local roles."))
	} else {
		checks = append(checks, check("contact-address", "Contact Information: Address", types.StatusNeedsAttention,
			"No city, state or zip code was found. Some recruiters filter candidates by location."))
	}

	checks = append(checks,
		sectionCheck(resume, "summary", "Summary Section", types.StatusNeedsAttention,
			[]string{"summary", "professional summary", "profile", "objective", "about me"}),
		sectionCheck(resume, "section-education", "Education Section", types.StatusFail,
			[]string{"education", "academic background"}),
		sectionCheck(resume, "section-experience", "Work Experience Section", types.StatusFail,
			[]string{"experience", "work experience", "professional experience", "employment", "work history"}),
		jobTitleCheck(resume, in.JobDescription),
		dateFormatCheck(resume),
		fileTypeCheck(in.FileName),
		fileNameCheck(in.FileName),
	)
	return checks
}

// sectionCheck passes when one of headings stands on a line of its own.
func sectionCheck(resume, id, name string, missing types.CheckStatus, headings []string) types.ScanCheck {
	for _, line := range strings.Split(resume, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if !headingLine.MatchString(line) {
			continue
		}
		line = strings.TrimSuffix(line, ":")
		for _, h := range headings {
			if line == h {
				return check(id, name, types.StatusPass, fmt.Sprintf("A %s heading was found.", strings.ToLower(name)))
			}
		}
	}
	return check(id, name, missing,
		fmt.Sprintf("No %s heading was found. ATS software looks for standard headings such as %q.",
			strings.ToLower(name), headings[0]))
}

// jobTitle is the first non-empty line of a job description without a "Job Title:" label.
func jobTitle(job string) string {
	for _, line := range strings.Split(job, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, label := range []string{"job title:", "position:", "role:", "title:"} {
			if strings.HasPrefix(strings.ToLower(line), label) {
				line = strings.TrimSpace(line[len(label):])
				break
			}
		}
		return line
	}
	return ""
}

func jobTitleCheck(resume, job string) types.ScanCheck {
	const id, name = "job-title-match", "Job Title Match"
	title := jobTitle(job)
	if title == "" || len(title) > 80 {
		return check(id, name, types.StatusNeedsAttention,
			"The job title could not be identified in the job description.")
	}
	if countTerm(resume, title) > 0 {
		return check(id, name, types.StatusPass,
			fmt.Sprintf("The job title '%s' was found in your resume.", title))
	}

	words := strings.Fields(title)
	matched := 0
	for _, w := range words {
		if countTerm(resume, w) > 0 {
			matched++
		}
	}
	if len(words) > 0 && matched*2 >= len(words) {
		return check(id, name, types.StatusNeedsAttention,
			fmt.Sprintf("Parts of the job title '%s' appear in your resume. Use the exact title where it is accurate.", title))
	}
	return check(id, name, types.StatusFail,
		fmt.Sprintf("The job title '%s' was not found in your resume.", title))
}

func dateFormatCheck(resume string) types.ScanCheck {
	const id, name = "date-formatting", "Date Formatting"
	monthYear := len(monthYearPattern.FindAllString(resume, -1))
	numeric := len(numericDatePattern.FindAllString(resume, -1))

	switch {
	case monthYear == 0 && numeric == 0:
		return check(id, name, types.StatusNeedsAttention,
			"No employment dates were found. Add start and end dates to each position.")
	case monthYear > 0 && numeric > 0:
		return check(id, name, types.StatusNeedsAttention,
			"Dates use mixed formats. Pick one format such as 'Jan 2020' or '01/2020'.")
	default:
		return check(id, name, types.StatusPass, "Dates are formatted consistently.")
	}
}

func fileTypeCheck(fileName string) types.ScanCheck {
	const id, name = "file-type", "File Type"
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".pdf":
		return check(id, name, types.StatusPass, "Your resume is in PDF format which is ATS-friendly.")
	case ".docx":
		return check(id, name, types.StatusPass, "Your resume is in DOCX format which is ATS-friendly.")
	case ".doc", ".txt":
		return check(id, name, types.StatusNeedsAttention,
			fmt.Sprintf("%s files are accepted, but PDF or DOCX keep formatting more reliably.", strings.ToUpper(ext[1:])))
	case "":
		return check(id, name, types.StatusNeedsAttention, "The file type could not be determined.")
	default:
		return check(id, name, types.StatusFail,
			fmt.Sprintf("%s files may not be readable by ATS software. Use PDF or DOCX.", strings.ToUpper(ext[1:])))
	}
}

func fileNameCheck(fileName string) types.ScanCheck {
	const id, name = "file-name", "File Name"
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)))
	if fileName == "" {
		return check(id, name, types.StatusNeedsAttention, "No file name was provided.")
	}
	parts := strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' || r == ' ' || r == '.' })
	mentionsResume := false
	for _, p := range parts {
		if p == "resume" || p == "cv" {
			mentionsResume = true
		}
	}
	if mentionsResume && len(parts) >= 2 {
		return check(id, name, types.StatusPass, "Your file name is professional and includes your name.")
	}
	return check(id, name, types.StatusNeedsAttention,
		"Name your file after yourself, for example 'jane_doe_resume.pdf'.")
}

func formattingChecks(resume string) []types.ScanCheck {
	words := len(strings.Fields(resume))
	var length types.ScanCheck
	switch {
	case words >= 400 && words <= 1000:
		length = check("length", "Resume Length", types.StatusPass,
			fmt.Sprintf("Your resume has %d words, within the recommended 400 to 1000.", words))
	case words >= 250 && words <= 1300:
		length = check("length", "Resume Length", types.StatusNeedsAttention,
			fmt.Sprintf("Your resume has %d words. Aim for 400 to 1000.", words))
	default:
		length = check("length", "Resume Length", types.StatusFail,
			fmt.Sprintf("Your resume has %d words, far from the recommended 400 to 1000.", words))
	}

	bullets := len(bulletPattern.FindAllString(resume, -1))
	var bulletCheck types.ScanCheck
	if bullets >= 3 {
		bulletCheck = check("bullets", "Bullet Points", types.StatusPass,
			"Your experience is organized in bullet points.")
	} else {
		bulletCheck = check("bullets", "Bullet Points", types.StatusNeedsAttention,
			"Use bullet points to describe responsibilities and achievements.")
	}

	return []types.ScanCheck{length, bulletCheck}
}

func recruiterChecks(resume string) []types.ScanCheck {
	metrics := len(metricPattern.FindAllString(resume, -1))
	var measurable types.ScanCheck
	switch {
	case metrics >= 3:
		measurable = check("quantifiable-results", "Quantifiable Results", types.StatusPass,
			fmt.Sprintf("Found %d quantified achievements.", metrics))
	case metrics > 0:
		measurable = check("quantifiable-results", "Quantifiable Results", types.StatusNeedsAttention,
			fmt.Sprintf("Found only %d quantified achievements. Add numbers, percentages or amounts.", metrics))
	default:
		measurable = check("quantifiable-results", "Quantifiable Results", types.StatusFail,
			"No quantified achievements were found. Numbers show the impact of your work.")
	}

	verbs := 0
	for _, v := range actionVerbs {
		if countTerm(resume, v) > 0 {
			verbs++
		}
	}
	var verbCheck types.ScanCheck
	switch {
	case verbs >= 5:
		verbCheck = check("action-verbs", "Action Verbs", types.StatusPass,
			fmt.Sprintf("Your resume uses %d different action verbs.", verbs))
	case verbs >= 2:
		verbCheck = check("action-verbs", "Action Verbs", types.StatusNeedsAttention,
			"Start more bullet points with strong action verbs such as 'led' or 'delivered'.")
	default:
		verbCheck = check("action-verbs", "Action Verbs", types.StatusFail,
			"Few action verbs were found. Describe what you did, not just what you were responsible for.")
	}

	return []types.ScanCheck{measurable, verbCheck}
}
