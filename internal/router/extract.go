package router

import (
	"regexp"
	"strings"

	"github.com/mesh-intelligence/waymark/internal/ids"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

var (
	ownerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bowner:\s*(\S+)`),
		regexp.MustCompile(`(?i)--owner\s+(\S+)`),
		regexp.MustCompile(`(?:^|\s)@(\S+)`),
	}

	doubleQuoted = regexp.MustCompile(`"([^"]+)"`)
	// A single-quoted title must open after whitespace and close before
	// whitespace or punctuation so that apostrophes are left alone.
	singleQuoted = regexp.MustCompile(`(?:^|\s)'([^']+)'(?:$|[\s.,;:!?])`)

	// Dated, legacy long, and legacy short reference shapes. A lower-case
	// single letter form needs at least four digits, as in p-0042.
	tokenPattern = regexp.MustCompile(`\b(?:(?i:(?:PLAN|SPEC|EXEC)-\d{8}-[0-9A-Z]{6}(?:-[a-z0-9]+)*)|(?i:(?:PLAN|SPEC|EXEC)-\d{1,6})|[PSE]-\d{1,6}|[pse]-\d{4,6})\b`)

	execKeyword = regexp.MustCompile(`(?i)\b(?:execute|exec|implement|run|build)\b`)
	specKeyword = regexp.MustCompile(`(?i)\b(?:spec|specification|specify|design|blueprint)\b`)

	readyVerb = regexp.MustCompile(`(?i)(?:[,;]?\s*\b(?:and|then)\s+)?\b(?:mark|set|make)\s+(?:(?:it|this)\s+)?(?:as\s+)?ready\b`)
	readyBare = regexp.MustCompile(`(?i)^ready\b|\bready$`)
	readyWord = regexp.MustCompile(`(?i)\bready\b`)
	readyEdge = regexp.MustCompile(`(?i)^\s*ready\b[\s,;:.!?-]*|[\s,;:-]*\bready[\s.!?]*$`)

	planPhrase = regexp.MustCompile(`(?i)^\s*(?:(?:create|make|add|new)\s+)?(?:(?:a|an|the)\s+)?(?:new\s+)?plan\b(?:\s+(?:for|to)\b)?`)
	specPhrase = regexp.MustCompile(`(?i)\b(?:(?:create|write|draft|make|add)\s+)?(?:(?:a|an|the)\s+)?(?:new\s+)?(?:spec|specification|specify|design|blueprint)(?:\s+out)?\b(?:\s+(?:for|on|of)\b)?(?:\s+(?:the|a|an)\b)?`)

	spaces = regexp.MustCompile(`\s+`)
)

// titleTrim is stripped from both ends of an extracted title.
const titleTrim = " \t\r\n\"'`,;:-"

var execVerbs = map[string]bool{"execute": true, "exec": true, "implement": true, "run": true, "build": true}

// parsed is the preprocessed input the rules inspect.
type parsed struct {
	input  string
	owner  string
	quoted string    // quoted title, if any
	rest   string    // input without owner, quotes and tokens
	tokens []ids.Ref // references in order of appearance
	first  map[types.Kind]*ids.Ref

	hasExec   bool
	hasSpec   bool
	readyVerb bool
	readyBare bool // "ready" as the first or last word
	readyWord bool // "ready" anywhere
}

func parse(input string) parsed {
	p := parsed{input: strings.TrimSpace(input), first: make(map[types.Kind]*ids.Ref)}

	text := p.input
	p.owner, text = extractOwner(text)
	p.quoted, text = extractQuoted(text)

	for _, m := range tokenPattern.FindAllString(text, -1) {
		if len(m) > 1 && m[1] == '-' {
			m = strings.ToUpper(m)
		}
		if ref, ok := ids.ParseRef(m); ok {
			p.tokens = append(p.tokens, ref)
		}
	}
	for i := range p.tokens {
		if _, seen := p.first[p.tokens[i].Kind]; !seen {
			p.first[p.tokens[i].Kind] = &p.tokens[i]
		}
	}
	text = tokenPattern.ReplaceAllString(text, " ")
	p.rest = collapse(text)

	p.hasExec = execKeyword.MatchString(p.rest)
	p.hasSpec = specKeyword.MatchString(p.rest)
	p.readyVerb = readyVerb.MatchString(p.rest)
	p.readyBare = readyBare.MatchString(strings.Trim(p.rest, titleTrim+".!?"))
	p.readyWord = readyWord.MatchString(p.rest)
	return p
}

// extractOwner finds the first owner marker (owner:x, --owner x, @x) and
// returns the owner and the text without the marker.
func extractOwner(text string) (string, string) {
	for _, re := range ownerPatterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		owner := strings.TrimRight(text[loc[2]:loc[3]], ",;:.!?")
		return owner, collapse(text[:loc[0]] + " " + text[loc[1]:])
	}
	return "", text
}

// extractQuoted returns the first double-quoted span, else the first
// single-quoted span, and the text with that span removed.
func extractQuoted(text string) (string, string) {
	for _, re := range []*regexp.Regexp{doubleQuoted, singleQuoted} {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		title := strings.TrimSpace(text[loc[2]:loc[3]])
		if title == "" {
			continue
		}
		return title, text[:loc[0]] + " " + text[loc[1]:]
	}
	return "", text
}

// leadingExecVerb reports whether the remaining text starts with an
// execute verb, as in "run the tests".
func (p parsed) leadingExecVerb() bool {
	fields := strings.Fields(p.rest)
	if len(fields) == 0 {
		return false
	}
	return execVerbs[strings.ToLower(strings.Trim(fields[0], titleTrim+".!?"))]
}

func (p parsed) planTitle() string {
	if p.quoted != "" {
		return p.quoted
	}
	t := planPhrase.ReplaceAllString(p.rest, " ")
	t = readyVerb.ReplaceAllString(t, " ")
	t = readyEdge.ReplaceAllString(strings.TrimSpace(t), " ")
	return p.orInput(t)
}

func (p parsed) specTitle() string {
	if p.quoted != "" {
		return p.quoted
	}
	loc := specPhrase.FindStringIndex(p.rest)
	t := p.rest
	if loc != nil {
		t = t[:loc[0]] + " " + t[loc[1]:]
	}
	return p.orInput(t)
}

// orInput cleans a candidate title and falls back to the literal input
// when nothing is left.
func (p parsed) orInput(t string) string {
	t = strings.Trim(collapse(t), titleTrim)
	if t == "" {
		return p.input
	}
	return t
}

func collapse(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
