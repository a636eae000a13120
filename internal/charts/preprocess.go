// Package charts turns free-form model replies into render-ready chart
// descriptors and tables.
package charts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedBlock    = regexp.MustCompile("(?is)```[ \\t]*(?:json|chart)[ \\t]*\\r?\\n?(.*?)```")
	excessNewlines = regexp.MustCompile(`(?:\r?\n){3,}`)
)

// Candidate is one span believed to hold a structured chart object.
type Candidate struct {
	// Source is the matched span exactly as it appeared in the reply.
	Source string
	// Body is the structured text after comment, comma and ratio cleanup.
	Body string
	// Raw is the strictly parsed value; nil when Err is set.
	Raw json.RawMessage
	Err error
	// Fenced is false for objects found by the bare-brace fallback.
	Fenced bool
}

func (c Candidate) origin() string {
	if c.Fenced {
		return "fenced"
	}
	return "inline"
}

// Preprocessed is the result of splitting a reply into prose and candidates.
type Preprocessed struct {
	Prose      string
	Candidates []Candidate
	// FirstBlock is the verbatim body of the first fenced block, kept for
	// diagnostic display whether or not it validated.
	FirstBlock string
}

// Preprocess extracts structured candidates from text in discovery order and
// returns the remaining prose with every matched span removed.
func Preprocess(text string) Preprocessed {
	var out Preprocessed
	var spans [][2]int

	for _, m := range fencedBlock.FindAllStringSubmatchIndex(text, -1) {
		inner := text[m[2]:m[3]]
		if len(spans) == 0 {
			out.FirstBlock = inner
		}
		c := parseCandidate(inner)
		c.Source = text[m[0]:m[1]]
		c.Fenced = true
		out.Candidates = append(out.Candidates, c)
		spans = append(spans, [2]int{m[0], m[1]})
	}

	if len(spans) == 0 {
		for _, sp := range braceSpans(text, `"type"`, `"data"`) {
			c := parseCandidate(text[sp[0]:sp[1]])
			c.Source = text[sp[0]:sp[1]]
			out.Candidates = append(out.Candidates, c)
			spans = append(spans, sp)
		}
	}

	out.Prose = tidyProse(removeSpans(text, spans))
	return out
}

// parseCandidate runs cleanup, ratio rewriting and a strict parse on one
// candidate. It shares no state with other candidates.
func parseCandidate(src string) Candidate {
	body := stripComments(src)
	body = stripTrailingCommas(body)
	body = rewriteRatios(body)
	body = strings.TrimSpace(body)

	c := Candidate{Body: body}
	var probe any
	if err := json.Unmarshal([]byte(body), &probe); err != nil {
		c.Err = fmt.Errorf("parse candidate: %w", err)
		return c
	}
	c.Raw = json.RawMessage(body)
	return c
}

func removeSpans(text string, spans [][2]int) string {
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(text[last:sp[0]])
		last = sp[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func tidyProse(s string) string {
	return strings.TrimSpace(excessNewlines.ReplaceAllString(s, "\n\n"))
}
