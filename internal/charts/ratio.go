package charts

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The ratio grammar is deliberately two numeric literals and one slash.
// Nothing else is ever evaluated.
const numberLiteral = `-?\d+(?:\.\d+)?`

var (
	ratioExpr = regexp.MustCompile(`^\s*(` + numberLiteral + `)\s*/\s*(` + numberLiteral + `)\s*$`)

	// "value": <number> / <number> followed by the end of the value.
	valueRatio = regexp.MustCompile(`("value"\s*:\s*)(` + numberLiteral + `\s*/\s*` + numberLiteral + `)(\s*[,}\]\r\n])`)
)

// TryEvalRatio evaluates text of the exact shape "<number> / <number>".
// The second result is false for any other shape and for a zero divisor.
func TryEvalRatio(text string) (float64, bool) {
	m := ratioExpr.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	den, err := strconv.ParseFloat(m[2], 64)
	if err != nil || den == 0 {
		return 0, false
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// rewriteRatios replaces every "value": a/b with the computed decimal.
// Right-hand sides of any other shape are left exactly as written.
func rewriteRatios(body string) string {
	matches := valueRatio.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		exprStart, exprEnd := m[4], m[5]
		v, ok := TryEvalRatio(body[exprStart:exprEnd])
		if !ok {
			continue
		}
		b.WriteString(body[last:exprStart])
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		last = exprEnd
	}
	b.WriteString(body[last:])
	return b.String()
}
