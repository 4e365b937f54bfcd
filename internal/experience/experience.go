// Package experience infers the years of experience a posting asks for and
// scores it against a candidate.
package experience

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

// MaxYears bounds any extracted number; larger values are treated as noise
// (a year, a headcount) and skipped.
const MaxYears = 60

var (
	entryLevelRe = regexp.MustCompile(`(?i)\b(entry[- ]level|fresher|graduate|intern(ship)?|junior)\b`)
	rangeRe      = regexp.MustCompile(`(?i)(\d+)\s*[-–]\s*(\d+)\s*(?:\+?\s*)?(?:years?|yrs?)`)
	orMoreRe     = regexp.MustCompile(`(?i)(\d+)\s*(?:\+|\bor more\b)\s*(?:years?|yrs?)`)
	singleRe     = regexp.MustCompile(`(?i)(?:at\s+least|min(?:imum)?(?:\s+of)?|minimum|required|over|more than)?\s*(\d+)\+?\s*(?:years?|yrs?)`)
	upToRe       = regexp.MustCompile(`(?i)(?:up to|upto)\s*(\d+)\s*(?:years?|yrs?)`)
	upToPrefixRe = regexp.MustCompile(`(?i)\bup\s*to\s*$`)
	seniorityRe  = regexp.MustCompile(`(?i)\b(senior|sr\.?|staff|principal|lead)\b`)
)

var normalizer = strings.NewReplacer(
	"\u2019", "'",
	"\u2018", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u2013", "-",
	"\u2014", "-",
	"\u00a0", " ",
	"\u200b", "",
	`\u002B`, "+",
)

// Normalize replaces typographic quotes and dashes, non-breaking and
// zero-width spaces, and escaped plus signs with their ASCII forms.
func Normalize(text string) string {
	return normalizer.Replace(text)
}

// Flags are keyword signals found alongside any numeric requirement.
type Flags struct {
	EntryLevel bool
	Senior     bool
}

// Inference is the experience requirement extracted from a posting.
// Min and Max are nil when unknown.
type Inference struct {
	Min   *int
	Max   *int
	Flags Flags
}

// Infer extracts a best-effort experience requirement from free text.
// Numeric patterns are tried in priority order (range, N+, single, up to);
// the first one that yields an in-range value wins. Seniority keywords are
// only consulted when no number was found.
func Infer(text string) Inference {
	var inf Inference
	if strings.TrimSpace(text) == "" {
		return inf
	}
	text = Normalize(text)

	if entryLevelRe.MatchString(text) {
		inf.Flags.EntryLevel = true
	}

	for _, m := range rangeRe.FindAllStringSubmatch(text, -1) {
		lo, ok1 := years(m[1])
		hi, ok2 := years(m[2])
		if ok1 && ok2 && hi >= lo {
			inf.Min, inf.Max = &lo, &hi
			return inf
		}
	}

	if n, ok := firstYears(orMoreRe, text); ok {
		inf.Min = &n
		return inf
	}

	if n, ok := firstSingleYears(text); ok {
		inf.Min = &n
		return inf
	}

	if n, ok := firstYears(upToRe, text); ok {
		zero := 0
		inf.Min, inf.Max = &zero, &n
		return inf
	}

	if seniorityRe.MatchString(text) {
		inf.Flags.Senior = true
	}
	return inf
}

func firstYears(re *regexp.Regexp, text string) (int, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if n, ok := years(m[1]); ok {
			return n, true
		}
	}
	return 0, false
}

// firstSingleYears is firstYears for singleRe, ignoring numbers that belong
// to an "up to N years" phrase.
func firstSingleYears(text string) (int, bool) {
	for _, m := range singleRe.FindAllStringSubmatchIndex(text, -1) {
		if upToPrefixRe.MatchString(text[:m[2]]) {
			continue
		}
		if n, ok := years(text[m[2]:m[3]]); ok {
			return n, true
		}
	}
	return 0, false
}

func years(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > MaxYears {
		return 0, false
	}
	return n, true
}

// Score decides whether a candidate with the given years of experience matches
// the inferred requirement, and explains why.
func Score(inf Inference, candidateYears int) (bool, string) {
	switch {
	case inf.Flags.EntryLevel:
		return true, "Entry-level / fresher role"
	case inf.Min != nil && *inf.Min > candidateYears:
		return false, fmt.Sprintf("Requires %d+ years; user has %d", *inf.Min, candidateYears)
	case inf.Flags.Senior && inf.Min == nil && candidateYears <= 2:
		return false, "Senior-level keywords detected"
	case inf.Min == nil:
		return true, "No explicit experience requirement found"
	case inf.Max != nil && *inf.Max != 0:
		return true, fmt.Sprintf("Matches range %d-%d years", *inf.Min, *inf.Max)
	default:
		return true, fmt.Sprintf("Minimum %d years – OK", *inf.Min)
	}
}

// Enrich fills the experience and match fields of each posting in place.
// The text examined is the title followed by the description.
func Enrich(postings []model.Posting, candidateYears int) {
	for i := range postings {
		p := &postings[i]
		inf := Infer(p.Title + " " + p.Description)
		p.ExperienceMin = inf.Min
		p.ExperienceMax = inf.Max
		p.Match, p.MatchReason = Score(inf, candidateYears)
	}
}
