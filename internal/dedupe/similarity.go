// Package dedupe detects duplicate and recurring incident reports
// using lexical similarity over normalized issue text.
//
// The score combines Jaccard token overlap with two fixed bonuses:
// one for shared vocabulary groups (different words for the same
// concept) and one for known equivalent phrasings. Scores are capped
// at 1.0.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	semanticBonus = 0.3
	phraseBonus   = 0.4
)

// semanticGroups are sets of near-synonymous tokens. Two texts that
// each contain a token from the same group earn the semantic bonus
// once, regardless of how many groups overlap.
var semanticGroups = [][]string{
	{"login", "signin", "sign-in", "log-in", "access", "authenticate"},
	{"password", "pass", "pwd", "reset", "forgot"},
	{"account", "profile", "user"},
	{"locked", "blocked", "disabled", "suspended", "frozen"},
	{"unable", "cannot", "cant", "failed", "error", "issue", "problem"},
	{"game", "play", "gaming", "playing"},
}

// phrasePair links two phrasings of the same complaint. The bonus
// applies when one text contains every word of one side and the
// other text every word of the opposite side, in either direction.
type phrasePair struct {
	left  []string
	right []string
}

var phrasePairs = []phrasePair{
	{left: []string{"cannot", "login"}, right: []string{"unable", "access"}},
	{left: []string{"password", "reset"}, right: []string{"forgot", "password"}},
	{left: []string{"account", "locked"}, right: []string{"cannot", "access"}},
	{left: []string{"unable", "play"}, right: []string{"game", "not", "working"}},
	{left: []string{"doxxing", "user"}, right: []string{"user", "information", "exposed"}},
}

var nonWord = regexp.MustCompile(`[^\w\s]`)
var multiSpace = regexp.MustCompile(`\s+`)

// Normalize lowercases text, strips punctuation, and collapses
// whitespace. Two reports of the same issue typed with different
// casing or punctuation normalize to the same string.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = nonWord.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// HashKey returns the short hex digest of the normalized text, used
// as the exact-duplicate lookup key. The key is only ever compared
// for equality.
func HashKey(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])[:8]
}

// Signals is the per-component breakdown of a similarity score.
type Signals struct {
	Jaccard       float64 `json:"jaccard"`
	SemanticBonus float64 `json:"semantic_bonus"`
	PhraseBonus   float64 `json:"phrase_bonus"`
}

// Total returns the combined score, capped at 1.0.
func (s Signals) Total() float64 {
	total := s.Jaccard + s.SemanticBonus + s.PhraseBonus
	if total > 1.0 {
		return 1.0
	}
	return total
}

// Score computes the similarity signals between two raw texts.
func Score(a, b string) Signals {
	normA, normB := Normalize(a), Normalize(b)
	tokensA, tokensB := tokenSet(normA), tokenSet(normB)

	sig := Signals{Jaccard: jaccard(tokensA, tokensB)}
	if sharesSemanticGroup(tokensA, tokensB) {
		sig.SemanticBonus = semanticBonus
	}
	if matchesPhrasePair(normA, normB) {
		sig.PhraseBonus = phraseBonus
	}
	return sig
}

func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var intersection int
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func sharesSemanticGroup(a, b map[string]struct{}) bool {
	for _, group := range semanticGroups {
		if containsAny(a, group) && containsAny(b, group) {
			return true
		}
	}
	return false
}

func containsAny(set map[string]struct{}, words []string) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func matchesPhrasePair(normA, normB string) bool {
	for _, pair := range phrasePairs {
		if (containsAll(normA, pair.left) && containsAll(normB, pair.right)) ||
			(containsAll(normA, pair.right) && containsAll(normB, pair.left)) {
			return true
		}
	}
	return false
}

func containsAll(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
