package directory

import (
	"strconv"
	"strings"

	"github.com/iamtanim0195/researchlink/internal/profiles"
)

// Criteria is one filter submission. Every field is optional; a zero value means
// the dimension is not filtered.
type Criteria struct {
	// ResearchAreas is comma-separated free text. Entries are trimmed and
	// lower-cased; empty tokens are discarded.
	ResearchAreas string
	// IELTS is the numeric score or requirement bar, depending on viewer role.
	IELTS float64
	// GRE is matched by exact case-insensitive equality after trimming.
	GRE string
}

// Search returns the candidates of the viewer's counterpart role satisfying
// every supplied criterion. Criteria combine with AND; research-area entries
// combine with OR. The result is unordered and Search never fails: malformed
// stored values degrade to permissive defaults instead of excluding a candidate.
func Search(viewerRole profiles.Role, candidates []profiles.UserProfile, criteria Criteria) []profiles.UserProfile {
	counterpart := viewerRole.Counterpart()
	terms := splitAreas(criteria.ResearchAreas)
	gre := strings.ToLower(strings.TrimSpace(criteria.GRE))

	matched := make([]profiles.UserProfile, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Role != counterpart {
			continue
		}
		if !researchMatch(terms, candidateAreas(candidate)) {
			continue
		}
		if !ieltsMatch(viewerRole, candidate, criteria.IELTS) {
			continue
		}
		if !greMatch(candidate, gre) {
			continue
		}
		matched = append(matched, candidate)
	}
	return matched
}

func splitAreas(raw string) []string {
	parts := strings.Split(raw, ",")
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		term := strings.ToLower(strings.TrimSpace(part))
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func candidateAreas(candidate profiles.UserProfile) []string {
	var areas []string
	if data, ok := candidate.ActiveStudentData(); ok {
		areas = data.ResearchAreas
	} else if data, ok := candidate.ActiveProfessorData(); ok {
		areas = data.ResearchAreas
	}
	lowered := make([]string, 0, len(areas))
	for _, area := range areas {
		lowered = append(lowered, strings.ToLower(area))
	}
	return lowered
}

func researchMatch(terms, areas []string) bool {
	if len(terms) == 0 {
		return true
	}
	for _, term := range terms {
		for _, area := range areas {
			if term == area {
				return true
			}
		}
	}
	return false
}

// ieltsMatch applies the role-directional comparison: a student checks that the
// professor's minimum bar does not exceed their own score, a professor checks
// that the student's score reaches their bar.
func ieltsMatch(viewerRole profiles.Role, candidate profiles.UserProfile, criterion float64) bool {
	if criterion == 0 {
		return true
	}
	if viewerRole == profiles.RoleStudent {
		data, _ := candidate.ActiveProfessorData()
		return parseScore(data.IELTSRequirement) <= criterion
	}
	data, _ := candidate.ActiveStudentData()
	return data.IELTSScore >= criterion
}

func greMatch(candidate profiles.UserProfile, criterion string) bool {
	if criterion == "" {
		return true
	}
	var value string
	if data, ok := candidate.ActiveProfessorData(); ok {
		value = data.GRERequirement
	} else if data, ok := candidate.ActiveStudentData(); ok {
		value = data.GRE
	}
	return strings.ToLower(strings.TrimSpace(value)) == criterion
}

// parseScore converts a free-text requirement to a number, treating anything
// unparsable as zero. A zero requirement passes every positive criterion.
func parseScore(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}
