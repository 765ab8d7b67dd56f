package optimizations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParsedResult is the structured form of the model's free-form reply.
type ParsedResult struct {
	OptimizedResume string
	Suggestions     []string
	MatchScore      float64
}

type section int

const (
	sectionNone section = iota
	sectionResume
	sectionSuggestions
	sectionScore
)

var (
	numberPattern     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	listMarkerPattern = regexp.MustCompile(`^(?:\d+[.)]\s*|[-*•]\s+)`)
)

// ParseModelOutput extracts the rewritten resume, suggestion list and match
// score from raw model text. It scans line by line, switching sections when a
// label is recognized; text outside any section is model commentary and is
// ignored. Labels tolerate case and spacing drift plus markdown decoration.
// A missing suggestions section degrades to an empty list; a missing resume
// or score section is ErrMalformedOutput.
func ParseModelOutput(raw string) (ParsedResult, error) {
	bodies := map[section][]string{}
	seen := map[section]bool{}
	current := sectionNone

	for _, line := range strings.Split(raw, "\n") {
		if sec, rest, ok := matchSectionLabel(line); ok {
			current = sec
			seen[sec] = true
			if rest != "" {
				bodies[sec] = append(bodies[sec], rest)
			}
			continue
		}
		if current != sectionNone {
			bodies[current] = append(bodies[current], line)
		}
	}

	resume := strings.TrimSpace(strings.Join(bodies[sectionResume], "\n"))
	if !seen[sectionResume] || resume == "" {
		return ParsedResult{}, fmt.Errorf("optimized resume section missing: %w", ErrMalformedOutput)
	}

	score, ok := extractScore(strings.Join(bodies[sectionScore], "\n"))
	if !seen[sectionScore] || !ok {
		return ParsedResult{}, fmt.Errorf("match score section missing: %w", ErrMalformedOutput)
	}

	return ParsedResult{
		OptimizedResume: resume,
		Suggestions:     splitSuggestions(bodies[sectionSuggestions]),
		MatchScore:      score,
	}, nil
}

// matchSectionLabel reports whether the line is a section header, returning
// any content that follows the label on the same line.
func matchSectionLabel(line string) (section, string, bool) {
	stripped := strings.TrimSpace(line)
	// Peel markdown decoration the model tends to wrap labels in.
	stripped = strings.TrimLeft(stripped, "#>*_ \t")
	stripped = strings.TrimRight(stripped, "*_ \t")
	if stripped == "" {
		return sectionNone, "", false
	}

	lower := strings.ToLower(stripped)
	for sec, label := range map[section]string{
		sectionResume:      strings.ToLower(labelResume),
		sectionSuggestions: strings.ToLower(labelSuggestions),
		sectionScore:       strings.ToLower(labelScore),
	} {
		if !strings.HasPrefix(lower, label) {
			continue
		}
		rest := strings.TrimSpace(stripped[len(label):])
		rest = strings.TrimSpace(strings.TrimLeft(rest, ":-–"))
		return sec, rest, true
	}
	return sectionNone, "", false
}

// splitSuggestions turns the enumerated block into one string per item,
// trimming list markers and dropping empties. A line without a marker
// continues the previous item.
func splitSuggestions(lines []string) []string {
	items := []string{}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if marker := listMarkerPattern.FindString(trimmed); marker != "" {
			item := strings.TrimSpace(trimmed[len(marker):])
			if item != "" {
				items = append(items, item)
			}
			continue
		}
		if len(items) > 0 {
			items[len(items)-1] += " " + trimmed
		} else {
			items = append(items, trimmed)
		}
	}
	return items
}

// extractScore takes the first numeric token in the score body. Values above
// 1.0 are read as percentages; the result is clamped to [0, 1].
func extractScore(body string) (float64, bool) {
	token := numberPattern.FindString(body)
	if token == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	if val > 1.0 {
		val /= 100.0
	}
	if val < 0.0 {
		val = 0.0
	} else if val > 1.0 {
		val = 1.0
	}
	return val, true
}
