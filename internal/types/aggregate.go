package types

// CountByStatus counts the checks in a category with the given status.
func CountByStatus(category CheckCategory, status CheckStatus) int {
	n := 0
	for _, c := range category.Checks {
		if c.Status == status {
			n++
		}
	}
	return n
}

// StatusCounts holds the number of checks per status
type StatusCounts struct {
	Pass           int `json:"pass"`
	Fail           int `json:"fail"`
	NeedsAttention int `json:"needsAttention"`
}

// Total is the number of checks counted.
func (c StatusCounts) Total() int {
	return c.Pass + c.Fail + c.NeedsAttention
}

// CountCategory returns the per-status counts of one category.
func CountCategory(category CheckCategory) StatusCounts {
	return StatusCounts{
		Pass:           CountByStatus(category, StatusPass),
		Fail:           CountByStatus(category, StatusFail),
		NeedsAttention: CountByStatus(category, StatusNeedsAttention),
	}
}

// CountAllByStatus sums the per-status counts over every category of a scan.
func CountAllByStatus(detail ScanDetail) StatusCounts {
	var total StatusCounts
	for _, cat := range detail.Categories {
		c := CountCategory(cat)
		total.Pass += c.Pass
		total.Fail += c.Fail
		total.NeedsAttention += c.NeedsAttention
	}
	return total
}

// SkillAggregate summarizes a skill list. Found, Missing and Unrequested
// always add up to the number of skills.
type SkillAggregate struct {
	FoundCount       int `json:"foundCount"`
	MissingCount     int `json:"missingCount"`
	UnrequestedCount int `json:"unrequestedCount"`
}

// AggregateSkills counts skills present in the resume (Found), and skills the
// job description asks for that the resume never mentions (Missing).
func AggregateSkills(skills []SkillMatch) SkillAggregate {
	var agg SkillAggregate
	for _, s := range skills {
		switch {
		case s.ResumeCount > 0:
			agg.FoundCount++
		case s.JobDescriptionCount > 0:
			agg.MissingCount++
		default:
			agg.UnrequestedCount++
		}
	}
	return agg
}
