// Package normalize makes a parsed but untrusted model response safe to use.
//
// Only two repairs are applied: every string anywhere in the tree is capped
// at MaxStringLen runes, and the five dimension scores under scoreDetails are
// coerced to numbers within [MinScore, MaxScore]. No other schema enforcement
// happens here.
package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxStringLen = 500
	Ellipsis     = "..."

	MinScore     = 1.0
	MaxScore     = 10.0
	DefaultScore = 5.0
)

// ErrInvalidResponseShape is returned when the top-level value is not a JSON object.
var ErrInvalidResponseShape = errors.New("invalid response structure")

// ScoreDimensions are the fixed keys under scoreDetails, in canonical order.
var ScoreDimensions = []string{
	"technicalComplexity",
	"marketOpportunity",
	"competitiveLandscape",
	"resourceRequirements",
	"timeToMarket",
}

// Report counts the repairs made by Normalize.
type Report struct {
	Truncated     int
	ScoresCoerced int
	ScoresClamped int
}

// Changed reports whether any repair was applied.
func (r Report) Changed() bool {
	return r.Truncated+r.ScoresCoerced+r.ScoresClamped > 0
}

// Normalize returns a cleaned copy of v. The input is not modified.
func Normalize(v any) (map[string]any, error) {
	out, _, err := NormalizeWithReport(v)
	return out, err
}

// NormalizeWithReport is Normalize plus a count of what was repaired.
func NormalizeWithReport(v any) (map[string]any, Report, error) {
	var rep Report
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return nil, rep, ErrInvalidResponseShape
	}
	out := truncate(obj, &rep).(map[string]any)
	if details, ok := out["scoreDetails"].(map[string]any); ok {
		for _, dim := range ScoreDimensions {
			entry, ok := details[dim].(map[string]any)
			if !ok {
				continue
			}
			score, coerced := coerceScore(entry["score"])
			if coerced {
				rep.ScoresCoerced++
			}
			clamped := ClampScore(score)
			if clamped != score {
				rep.ScoresClamped++
			}
			entry["score"] = clamped
		}
	}
	return out, rep, nil
}

// TruncateString caps s at MaxStringLen runes, appending Ellipsis when cut.
func TruncateString(s string) string {
	if utf8.RuneCountInString(s) <= MaxStringLen {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxStringLen {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

// ClampScore bounds f to [MinScore, MaxScore]. NaN becomes DefaultScore.
func ClampScore(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return DefaultScore
	case f < MinScore:
		return MinScore
	case f > MaxScore:
		return MaxScore
	}
	return f
}

// ParseScore reads a numeric score from a decoded JSON value. Strings are
// parsed; anything unparseable yields ok=false.
func ParseScore(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(leadingNumber(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func coerceScore(v any) (float64, bool) {
	if f, ok := v.(float64); ok && !math.IsNaN(f) {
		return f, false
	}
	f, ok := ParseScore(v)
	if !ok {
		return DefaultScore, true
	}
	return f, true
}

// leadingNumber keeps the numeric prefix of s, so "7/10" and "8 out of 10"
// read as 7 and 8.
func leadingNumber(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	seenDigit, seenDot := false, false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		case (r == 'e' || r == 'E') && seenDigit:
			return s[:end+exponentLen(s[i:])]
		default:
			if !seenDigit {
				return s
			}
			return s[:end]
		}
		end = i + utf8.RuneLen(r)
	}
	return s[:end]
}

// exponentLen is the length of an [eE][+-]?digits prefix of s, or 0.
func exponentLen(s string) int {
	i := 1
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0
	}
	return i
}

func truncate(v any, rep *Report) any {
	switch x := v.(type) {
	case string:
		t := TruncateString(x)
		if t != x {
			rep.Truncated++
		}
		return t
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = truncate(x[i], rep)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = truncate(vv, rep)
		}
		return out
	default:
		return v
	}
}
