package analyzer

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"snapscreen/internal/types"
)

// skillTerm is one lexicon entry. Terms are the spellings counted for the skill.
type skillTerm struct {
	Name  string
	Terms []string
}

var hardSkillLexicon = []skillTerm{
	{"JavaScript", []string{"javascript"}},
	{"TypeScript", []string{"typescript"}},
	{"React", []string{"react", "reactjs"}},
	{"Redux", []string{"redux"}},
	{"Vue", []string{"vue", "vuejs"}},
	{"Angular", []string{"angular"}},
	{"Node.js", []string{"node.js", "nodejs"}},
	{"HTML", []string{"html", "html5"}},
	{"CSS", []string{"css", "css3"}},
	{"GraphQL", []string{"graphql"}},
	{"REST APIs", []string{"rest api", "rest apis", "restful"}},
	{"Python", []string{"python"}},
	{"Go", []string{"golang"}},
	{"Java", []string{"java"}},
	{"SQL", []string{"sql"}},
	{"PostgreSQL", []string{"postgresql", "postgres"}},
	{"MongoDB", []string{"mongodb"}},
	{"Redis", []string{"redis"}},
	{"Docker", []string{"docker"}},
	{"Kubernetes", []string{"kubernetes", "k8s"}},
	{"AWS", []string{"aws", "amazon web services"}},
	{"GCP", []string{"gcp", "google cloud"}},
	{"Terraform", []string{"terraform"}},
	{"CI/CD", []string{"ci/cd"}},
	{"Git", []string{"git"}},
	{"Linux", []string{"linux"}},
	{"Jest", []string{"jest"}},
	{"Webpack", []string{"webpack"}},
	{"Machine Learning", []string{"machine learning"}},
	{"Figma", []string{"figma"}},
}

var softSkillLexicon = []skillTerm{
	{"Communication", []string{"communication", "communicator"}},
	{"Teamwork", []string{"teamwork", "team player"}},
	{"Leadership", []string{"leadership"}},
	{"Problem Solving", []string{"problem solving", "problem-solving"}},
	{"Collaboration", []string{"collaboration", "collaborative"}},
	{"Time Management", []string{"time management"}},
	{"Adaptability", []string{"adaptability", "adaptable"}},
	{"Mentoring", []string{"mentoring", "mentored", "mentorship"}},
	{"Attention to Detail", []string{"attention to detail", "detail-oriented"}},
	{"Creativity", []string{"creativity", "creative"}},
	{"Critical Thinking", []string{"critical thinking"}},
	{"Stakeholder Management", []string{"stakeholder management"}},
}

// countTerm counts case-insensitive occurrences of term in text that are not
// glued to a neighboring letter or digit.
func countTerm(text, term string) int {
	if term == "" {
		return 0
	}
	haystack := strings.ToLower(text)
	needle := strings.ToLower(term)

	n := 0
	for offset := 0; offset < len(haystack); {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			break
		}
		start := offset + i
		end := start + len(needle)
		if isBoundary(haystack, start, end) {
			n++
			offset = end
		} else {
			offset = start + 1
		}
	}
	return n
}

func isBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#'
}

// matchSkills counts every lexicon skill in both texts and keeps the skills
// mentioned by either. Skills the job asks for most come first.
func matchSkills(lexicon []skillTerm, resume, job string) []types.SkillMatch {
	var out []types.SkillMatch
	for _, skill := range lexicon {
		m := types.SkillMatch{Name: skill.Name}
		for _, term := range skill.Terms {
			m.ResumeCount += countTerm(resume, term)
			m.JobDescriptionCount += countTerm(job, term)
		}
		if m.ResumeCount > 0 || m.JobDescriptionCount > 0 {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JobDescriptionCount > out[j].JobDescriptionCount
	})
	return out
}
