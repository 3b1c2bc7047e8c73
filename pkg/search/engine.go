// Package search ranks catalog entries against free-text queries. Scoring is
// deterministic and additive, with multiplicative accessory/category
// adjustments applied only after the additive signals are summed, so a
// penalty can always pull an accessory below the product it attaches to.
package search

import (
	"sort"
	"strings"

	"github.com/kozydot/findr/pkg/models"
	"github.com/kozydot/findr/pkg/normalizers"
)

// Threshold is the minimum score a product needs to appear in results.
const Threshold = 0.3

// MaxResults caps the ranked list.
const MaxResults = 50

// Additive signal weights, strongest to weakest.
const (
	scoreNamePrefix    = 10  // name starts with the full query
	scorePhraseMatch   = 8   // query appears as a contiguous token run
	scoreSubstring     = 3   // query is a substring, not token-aligned
	scoreBrandTerm     = 5   // term matches the product's brand token
	scoreTermOpensName = 4   // term is the first word of the name
	scoreTermEarly     = 3   // term occurs in the first third of the name
	scoreTermLate      = 1.5 // term occurs later in the name
	scoreTermInDesc    = 1   // term appears in the description
)

// Multiplicative adjustments, applied after summation.
const (
	accessoryPenalty = 0.3
	categoryBoost    = 1.5
)

// Engine scores and ranks product summaries. Stateless between calls; every
// Search invocation is a pure function of the snapshot and the query.
type Engine struct {
	rules RuleSet
}

// NewEngine builds a search engine over the given rule set.
func NewEngine(rules RuleSet) *Engine {
	return &Engine{rules: rules}
}

// Search filters and ranks catalog against query. An empty (or all-blank)
// query returns the catalog unchanged. Results are ordered by descending
// score, ties keeping catalog order, capped at MaxResults; products scoring
// below Threshold are dropped.
func (e *Engine) Search(catalog []models.ProductSummary, query string) []models.ProductSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return catalog
	}

	type scored struct {
		product models.ProductSummary
		score   float64
	}

	ranked := make([]scored, 0, len(catalog))
	for _, p := range catalog {
		s := e.Score(p, q)
		if s >= Threshold {
			ranked = append(ranked, scored{product: p, score: s})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > MaxResults {
		ranked = ranked[:MaxResults]
	}

	out := make([]models.ProductSummary, len(ranked))
	for i, r := range ranked {
		out[i] = r.product
	}
	return out
}

// Score computes the relevance of one product against an already-normalized
// (lower-cased, trimmed) query. Missing fields are treated as empty strings;
// a malformed entry scores low rather than failing the pass.
func (e *Engine) Score(p models.ProductSummary, query string) float64 {
	name := strings.ToLower(p.Name)
	desc := strings.ToLower(p.Description)
	terms := strings.Fields(query)

	var score float64

	// Whole-query containment, strongest tier that applies.
	switch {
	case strings.HasPrefix(name, query):
		score += scoreNamePrefix
	case containsTokenRun(name, query):
		score += scorePhraseMatch
	case strings.Contains(name, query):
		score += scoreSubstring
	}

	brand := brandToken(name, e.rules.Brands)
	third := len(name) / 3

	for _, term := range terms {
		if len(term) < 2 {
			continue
		}

		if term == brand {
			score += scoreBrandTerm
		} else if idx := strings.Index(name, term); idx >= 0 {
			switch {
			case idx == 0:
				score += scoreTermOpensName
			case idx <= third:
				score += scoreTermEarly
			default:
				score += scoreTermLate
			}
		}

		if strings.Contains(desc, term) {
			score += scoreTermInDesc
		}
	}

	if containsAny(name+" "+desc, e.rules.AccessoryKeywords) {
		score *= accessoryPenalty
	}

	for _, pattern := range e.rules.CategoryPatterns {
		if pattern.MatchString(query) && pattern.MatchString(name) {
			score *= categoryBoost
			break
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

// containsTokenRun reports whether phrase occurs in text as a contiguous run
// of whole tokens, not merely as a substring that splits a word.
func containsTokenRun(text, phrase string) bool {
	idx := strings.Index(text, phrase)
	for idx >= 0 {
		beforeOK := idx == 0 || text[idx-1] == ' '
		end := idx + len(phrase)
		afterOK := end == len(text) || text[end] == ' '
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(text[idx+1:], phrase)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

// brandToken extracts the product's brand: the name's first word, only when
// it belongs to the known-brand set.
func brandToken(name string, brands map[string]bool) string {
	first, _, _ := strings.Cut(name, " ")
	first = normalizers.Trim(first)
	if brands[first] {
		return first
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
