package semantic

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/lexer"
)

// toDiagSpan converts a lexer.Span to a diag.Span.
func toDiagSpan(span lexer.Span) diag.Span {
	return diag.Span{
		Filename: span.Filename,
		Line:     span.Line,
		Column:   span.Column,
		Start:    span.Start,
		End:      span.End,
	}
}

func (a *Analyzer) reportError(code diag.Code, msg string, span lexer.Span, help string) {
	a.report(code, msg, span, "", help, nil)
}

// report appends an error diagnostic. related, when valid, is attached as a
// secondary span (e.g. the earlier declaration of a duplicated name).
func (a *Analyzer) report(code diag.Code, msg string, span lexer.Span, label, help string, related *lexer.Span) {
	d := diag.Diagnostic{
		Stage:    diag.StageSemantic,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  msg,
		Span:     toDiagSpan(span),
		Help:     help,
	}

	if d.Span.IsValid() {
		d = d.WithPrimarySpan(d.Span, label)
	}
	if related != nil && related.Line > 0 {
		d = d.WithSecondarySpan(toDiagSpan(*related), "declared here")
	}

	a.Errors = append(a.Errors, d)
}

// didYouMean returns a help line naming the closest candidate to target, or
// "" when nothing is close enough.
func didYouMean(target string, candidates []string) string {
	if match := findClosestMatch(target, candidates); match != "" {
		return "did you mean '" + match + "'?"
	}
	return ""
}

// findClosestMatch prefers fuzzy subsequence matches and falls back to a
// small edit distance for typos that reorder letters.
func findClosestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", len(target)/3+1
	for _, c := range candidates {
		if c == target {
			continue
		}
		if d := fuzzy.LevenshteinDistance(target, c); d <= bestDist && (best == "" || d < bestDist) {
			best, bestDist = c, d
		}
	}
	return best
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
