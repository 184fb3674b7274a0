package mockbackend

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/nao1215/neurobreak/pkg/gatewayclient"
)

// guardTerm は検出語とその正規表現。
type guardTerm struct {
	term    string
	pattern *regexp.Regexp
}

// categoryTerms はカテゴリごとの検出語。大文字小文字を区別せず単語単位で比較する。
var categoryTerms = map[string][]guardTerm{
	"violence":  compileTerms("kill", "attack", "bomb", "weapon", "murder"),
	"self_harm": compileTerms("suicide", "self-harm", "hurt myself"),
	"hate":      compileTerms("hate", "slur", "exterminate"),
	"sexual":    compileTerms("explicit", "nsfw", "porn"),
}

func compileTerms(terms ...string) []guardTerm {
	out := make([]guardTerm, 0, len(terms))
	for _, term := range terms {
		out = append(out, guardTerm{
			term:    term,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`),
		})
	}
	return out
}

// evaluateGuard はtextをキーワードで判定する。
// カテゴリごとのスコアは一致数/2（上限1）で、最大スコアがthreshold以上ならblock、
// 0より大きければflag、それ以外はallowになる。categoriesが空なら全カテゴリを検査する。
func evaluateGuard(text string, threshold float64, categories []string) gatewayclient.GuardResult {
	if len(categories) == 0 {
		categories = slices.Sorted(maps.Keys(categoryTerms))
	} else {
		categories = slices.Sorted(slices.Values(categories))
	}

	var (
		maxScore  float64
		matched   = []string{}
		rationale []string
	)
	for _, category := range categories {
		hits := 0
		for _, t := range categoryTerms[category] {
			if t.pattern.MatchString(text) {
				hits++
				rationale = append(rationale, fmt.Sprintf("matched %q (%s)", t.term, category))
			}
		}
		if hits == 0 {
			continue
		}
		matched = append(matched, category)
		maxScore = max(maxScore, min(1, float64(hits)/2))
	}

	result := gatewayclient.GuardResult{
		Verdict:    gatewayclient.VerdictAllow,
		Severity:   severityOf(maxScore),
		Rationale:  rationale,
		Categories: matched,
	}
	switch {
	case maxScore > 0 && maxScore >= threshold:
		result.Verdict = gatewayclient.VerdictBlock
	case maxScore > 0:
		result.Verdict = gatewayclient.VerdictFlag
	default:
		result.Rationale = []string{"No issues found"}
	}
	return result
}

func severityOf(score float64) gatewayclient.Severity {
	switch {
	case score >= 1:
		return gatewayclient.SeverityHigh
	case score >= 0.5:
		return gatewayclient.SeverityMedium
	default:
		return gatewayclient.SeverityLow
	}
}
