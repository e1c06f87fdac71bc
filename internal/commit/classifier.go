// Package commit classifies raw commits by conventional-commit type and
// renders them into deterministic, retrievable chunk text (spec §4.7).
package commit

import "regexp"

// Type is a conventional-commit category.
type Type string

const (
	TypeFeat     Type = "feat"
	TypeFix      Type = "fix"
	TypeRefactor Type = "refactor"
	TypeDocs     Type = "docs"
	TypeTest     Type = "test"
	TypeChore    Type = "chore"
	TypeStyle    Type = "style"
	TypePerf     Type = "perf"
	TypeBuild    Type = "build"
	TypeCI       Type = "ci"
	TypeRevert   Type = "revert"
	TypeOther    Type = "other"
)

type classifierRule struct {
	typ      Type
	patterns []*regexp.Regexp
}

// classifierRules is ordered; the first matching type wins. Order is part
// of the contract (spec §4.7: "feat matches before fix for subjects
// beginning feat(fix):").
var classifierRules = []classifierRule{
	{TypeFeat, []*regexp.Regexp{regexp.MustCompile(`(?i)^feat(\(.+\))?!?:`)}},
	{TypeFix, []*regexp.Regexp{regexp.MustCompile(`(?i)^fix(\(.+\))?!?:`)}},
	{TypeRefactor, []*regexp.Regexp{regexp.MustCompile(`(?i)^refactor(\(.+\))?!?:`)}},
	{TypeDocs, []*regexp.Regexp{regexp.MustCompile(`(?i)^docs?(\(.+\))?!?:`)}},
	{TypeTest, []*regexp.Regexp{regexp.MustCompile(`(?i)^tests?(\(.+\))?!?:`)}},
	{TypeChore, []*regexp.Regexp{regexp.MustCompile(`(?i)^chore(\(.+\))?!?:`)}},
	{TypeStyle, []*regexp.Regexp{regexp.MustCompile(`(?i)^style(\(.+\))?!?:`)}},
	{TypePerf, []*regexp.Regexp{regexp.MustCompile(`(?i)^perf(\(.+\))?!?:`)}},
	{TypeBuild, []*regexp.Regexp{regexp.MustCompile(`(?i)^build(\(.+\))?!?:`)}},
	{TypeCI, []*regexp.Regexp{regexp.MustCompile(`(?i)^ci(\(.+\))?!?:`)}},
	{TypeRevert, []*regexp.Regexp{regexp.MustCompile(`(?i)^revert(\(.+\))?!?:`)}},
}

// Classify applies the ordered rule cascade to subject first, then to
// "subject + body" if subject alone doesn't match. No match yields
// TypeOther.
func Classify(subject, body string) Type {
	for _, rule := range classifierRules {
		for _, re := range rule.patterns {
			if re.MatchString(subject) {
				return rule.typ
			}
		}
	}
	combined := subject + " " + body
	for _, rule := range classifierRules {
		for _, re := range rule.patterns {
			if re.MatchString(combined) {
				return rule.typ
			}
		}
	}
	return TypeOther
}
