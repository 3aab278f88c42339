package naming

import (
	"regexp"
	"strconv"
)

// ParseRule pairs a compiled regex with an extraction function. Rules are
// evaluated in order by [ParseReadName]; first match wins. Patterns are
// matched against the basename with the FASTQ extension removed.
type ParseRule struct {
	Name    string
	Pattern *regexp.Regexp
	Extract func(matches []string) ReadName
}

func roleOf(digit string) Role {
	switch digit {
	case "1":
		return RoleR1
	case "2":
		return RoleR2
	}
	return RoleUnknown
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var (
	// S1_L001_R1_001
	reIllumina = regexp.MustCompile(`^(.+)_R([12])_([0-9]+)$`)

	// S1_R1, S1.R2
	reDesignator = regexp.MustCompile(`^(.+)[._]R([12])$`)

	// SRR1234567_1
	reNumbered = regexp.MustCompile(`^(.+)_([12])$`)
)

// Rules is the ordered rule table used by [ParseReadName].
var Rules = []ParseRule{
	{
		Name:    "illumina",
		Pattern: reIllumina,
		Extract: func(m []string) ReadName {
			return ReadName{Sample: m[1], Role: roleOf(m[2]), Run: atoi(m[3])}
		},
	},
	{
		Name:    "designator",
		Pattern: reDesignator,
		Extract: func(m []string) ReadName {
			return ReadName{Sample: m[1], Role: roleOf(m[2])}
		},
	},
	{
		Name:    "numbered",
		Pattern: reNumbered,
		Extract: func(m []string) ReadName {
			return ReadName{Sample: m[1], Role: roleOf(m[2])}
		},
	},
}
