package risk

import "strings"

// Weighted name lexicons (spec §4.2). Kept as package-level maps, the
// way the teacher compiles its regex pattern lists once at package
// scope instead of per call.
var (
	highSignalTokens = map[string]bool{
		"id": true, "uuid": true, "guid": true, "user": true, "account": true,
		"customer": true, "payment": true, "order": true, "invoice": true,
		"transaction": true, "card": true, "ssn": true,
	}

	mediumSignalTokens = map[string]bool{
		"email": true, "phone": true, "name": true, "address": true,
		"session": true, "token": true, "key": true,
	}

	negativeSignalTokens = map[string]bool{
		"page": true, "limit": true, "offset": true, "size": true,
		"cursor": true, "sort": true, "filter": true, "q": true,
		"query": true,
	}

	// negativePhrases are the multi-word pagination/sort names from
	// spec §4.2 that Tokenize always splits into more than one token
	// ("order_by" -> "order","by"; "per_page" -> "per","page"). They're
	// matched against the whole name's tokens joined back together, so
	// "order_by", "orderBy", and "orderby" all score identically
	// regardless of separator style, and so "order" alone (a +40
	// high-signal token) never leaks through a compound name that is
	// really the -30 sort-key parameter.
	negativePhrases = map[string]bool{
		"orderby": true,
		"perpage": true,
	}
)

const (
	weightHigh     = 40
	weightMedium   = 20
	weightNegative = -30
)

// NameHit is one lexicon match against a single token of a parameter
// name.
type NameHit struct {
	Token string
	Delta int
}

// NameSignal finds the lexicon contributions across every token of a
// parameter name. Multiple tokens can each contribute — "user_id" hits
// both "user" and "id" (spec §4.2 gives no dedup rule, and the
// tokenizer purposely keeps that compounding: a name hitting two
// high-signal tokens is a stronger ownership signal than one hitting a
// single token).
func NameSignal(name string) []NameHit {
	tokens := Tokenize(name)

	if joined := strings.Join(tokens, ""); negativePhrases[joined] {
		// The compound phrase wins outright: a name that tokenizes to
		// "orderby"/"perpage" is a sort/paging key, never an ownership
		// identifier, even though one of its tokens ("order") would
		// otherwise score as high-signal on its own.
		return []NameHit{{Token: joined, Delta: weightNegative}}
	}

	var hits []NameHit
	for _, tok := range tokens {
		switch {
		case highSignalTokens[tok]:
			hits = append(hits, NameHit{Token: tok, Delta: weightHigh})
		case mediumSignalTokens[tok]:
			hits = append(hits, NameHit{Token: tok, Delta: weightMedium})
		case negativeSignalTokens[tok]:
			hits = append(hits, NameHit{Token: tok, Delta: weightNegative})
		}
	}
	return hits
}
