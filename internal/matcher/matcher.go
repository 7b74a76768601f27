// Package matcher compiles the configured event pattern into a line
// predicate.
//
// A pattern string is either a literal or a regular expression. A trimmed
// pattern that starts and ends with the same delimiter character (/, | or %)
// is a regular expression; the text between the delimiters is compiled as-is,
// so the delimiter itself never needs escaping inside it. Anything else is a
// literal, matched either as a whole word (the default) or as an arbitrary
// substring.
package matcher

import (
	"fmt"
	"regexp"
	"strings"
)

// Delimiters lists the characters that mark a pattern as a regular expression.
const Delimiters = "/|%"

// Kind identifies how a Matcher tests a line.
type Kind int

const (
	// WholeWord matches a literal bounded by spaces (or the line edges).
	WholeWord Kind = iota
	// Substring matches a literal anywhere in the line.
	Substring
	// Regex matches a compiled regular expression anywhere in the line.
	Regex
)

// String returns the name used in notices.
func (k Kind) String() string {
	switch k {
	case WholeWord:
		return "word"
	case Substring:
		return "substring"
	case Regex:
		return "regex"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CompileError reports a pattern that cannot be turned into a Matcher.
type CompileError struct {
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid pattern '%s'", e.Pattern)
	}
	return fmt.Sprintf("invalid regular expression pattern '%s': %v", e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Matcher is an immutable line predicate. The match function is chosen once
// by Compile; callers only ever call Match.
type Matcher struct {
	Kind   Kind
	Source string

	re    *regexp.Regexp
	match func(line string) bool
}

// Compile parses raw into a Matcher. arbitrary selects substring matching for
// literal patterns and is ignored for regular expressions.
func Compile(raw string, arbitrary bool) (*Matcher, error) {
	pattern := strings.TrimSpace(raw)

	if body, ok := unwrap(pattern); ok {
		if body == "" {
			return nil, &CompileError{Pattern: pattern}
		}
		re, err := regexp.Compile(body)
		if err != nil {
			return nil, &CompileError{Pattern: pattern, Err: err}
		}
		return &Matcher{Kind: Regex, Source: body, re: re, match: re.MatchString}, nil
	}

	if pattern == "" {
		return nil, &CompileError{Pattern: raw}
	}

	if arbitrary {
		return &Matcher{
			Kind:   Substring,
			Source: pattern,
			match:  func(line string) bool { return strings.Contains(line, pattern) },
		}, nil
	}

	word := " " + pattern + " "
	return &Matcher{
		Kind:   WholeWord,
		Source: pattern,
		match:  func(line string) bool { return strings.Contains(" "+line+" ", word) },
	}, nil
}

// Match reports whether line satisfies the pattern.
func (m *Matcher) Match(line string) bool {
	return m.match(line)
}

// String describes the matcher the way it appears in notices.
func (m *Matcher) String() string {
	return fmt.Sprintf("%s pattern: %s", m.Kind, m.Source)
}

// unwrap strips a matching pair of regex delimiters from pattern.
func unwrap(pattern string) (string, bool) {
	if len(pattern) < 2 {
		return "", false
	}
	first, last := pattern[0], pattern[len(pattern)-1]
	if first != last || !strings.ContainsRune(Delimiters, rune(first)) {
		return "", false
	}
	return pattern[1 : len(pattern)-1], true
}
