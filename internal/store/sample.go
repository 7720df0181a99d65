package store

import "snapscreen/internal/types"

type sampleScan struct {
	id, title, company, fileName, date string
	score                              int
}

var sampleScans = []sampleScan{
	{"1", "Software Engineer Resume", "Google", "john_doe_resume.pdf", "2023-10-15", 82},
	{"2", "Product Manager Application", "Microsoft", "product_manager_resume.pdf", "2023-09-22", 75},
	{"3", "Data Scientist Position", "Amazon", "data_scientist_resume.pdf", "2023-08-30", 68},
	{"4", "Frontend Developer", "Meta", "frontend_resume.pdf", "2023-07-14", 91},
	{"5", "UX Designer", "", "ux_portfolio_resume.pdf", "2023-06-08", 88},
}

// SampleScans returns the demo scans the dashboard is seeded with. Every call
// returns fresh copies.
func SampleScans() []types.ScanDetail {
	out := make([]types.ScanDetail, 0, len(sampleScans))
	for _, s := range sampleScans {
		d := types.ScanDetail{
			ID:          s.id,
			Title:       s.title,
			Company:     s.company,
			FileName:    s.fileName,
			DateScanned: s.date,
			Score:       s.score,
			Categories:  sampleCategories(),
			HardSkills: []types.SkillMatch{
				{Name: "JavaScript", ResumeCount: 3, JobDescriptionCount: 2},
				{Name: "React", ResumeCount: 2, JobDescriptionCount: 3},
				{Name: "TypeScript", ResumeCount: 1, JobDescriptionCount: 2},
				{Name: "Docker", ResumeCount: 0, JobDescriptionCount: 2},
				{Name: "Kubernetes", ResumeCount: 0, JobDescriptionCount: 1},
				{Name: "Node.js", ResumeCount: 2, JobDescriptionCount: 1},
				{Name: "AWS", ResumeCount: 1, JobDescriptionCount: 2},
			},
			SoftSkills: []types.SkillMatch{
				{Name: "Communication", ResumeCount: 1, JobDescriptionCount: 2},
				{Name: "Teamwork", ResumeCount: 2, JobDescriptionCount: 1},
				{Name: "Problem Solving", ResumeCount: 1, JobDescriptionCount: 2},
				{Name: "Leadership", ResumeCount: 0, JobDescriptionCount: 1},
				{Name: "Time Management", ResumeCount: 1, JobDescriptionCount: 1},
			},
		}
		d.Normalize()
		out = append(out, d)
	}
	return out
}

func sampleCategories() []types.CheckCategory {
	return []types.CheckCategory{
		{
			ID:   "searchability",
			Name: "Searchability",
			Checks: []types.ScanCheck{
				{ID: "contact-email", Name: "Email", Status: types.StatusPass,
					Feedback: "You provided your email. Recruiters use your email to contact you for job matches."},
				{ID: "contact-phone", Name: "Phone Number", Status: types.StatusFail,
					Feedback: "We did not find a phone number in your resume. Some recruiters prefer a phone call to email."},
				{ID: "contact-address", Name: "Address", Status: types.StatusFail,
					Feedback: "We did not find an address in your resume. Recruiters use your address to validate your location for job matches."},
				{ID: "summary", Name: "Summary", Status: types.StatusFail,
					Feedback: "We did not find a summary section on your resume. The summary provides a quick overview of the candidate's qualifications."},
				{ID: "section-education", Name: "Education Section", Status: types.StatusPass,
					Feedback: "We found the education section in your resume."},
				{ID: "section-experience", Name: "Work Experience Section", Status: types.StatusPass,
					Feedback: "We found the work experience section in your resume."},
				{ID: "job-title-match", Name: "Job Title Match", Status: types.StatusPass,
					Feedback: "Your resume includes the exact job title from the job description."},
				{ID: "date-formatting", Name: "Date Formatting", Status: types.StatusPass,
					Feedback: "The dates in your work experience section are properly formatted."},
				{ID: "education-match", Name: "Education Match", Status: types.StatusPass,
					Feedback: "Your education matches the requirements in the job description."},
				{ID: "file-type", Name: "File Type", Status: types.StatusPass,
					Feedback: "You are using a PDF resume, which is the preferred format for most ATS systems."},
				{ID: "file-name", Name: "File Name", Status: types.StatusPass,
					Feedback: "Your file name is concise and readable without special characters."},
			},
		},
		{
			ID:   "formatting",
			Name: "Formatting",
			Checks: []types.ScanCheck{
				{ID: "margins", Name: "Margins", Status: types.StatusNeedsAttention,
					Feedback: "Margins may be too narrow for optimal ATS parsing."},
				{ID: "font", Name: "Font", Status: types.StatusPass,
					Feedback: "You're using a standard font that's ATS-friendly."},
				{ID: "length", Name: "Resume Length", Status: types.StatusPass,
					Feedback: "Resume length is appropriate (1-2 pages)."},
				{ID: "bullets", Name: "Bullet Points", Status: types.StatusPass,
					Feedback: "Your bullet points are formatted consistently."},
			},
		},
		{
			ID:   "recruiter-tips",
			Name: "Recruiter Tips",
			Checks: []types.ScanCheck{
				{ID: "quantifiable-results", Name: "Quantifiable Results", Status: types.StatusNeedsAttention,
					Feedback: "Consider adding more measurable achievements to your experience section."},
				{ID: "action-verbs", Name: "Action Verbs", Status: types.StatusPass,
					Feedback: "Good use of action verbs throughout your resume."},
			},
		},
	}
}
