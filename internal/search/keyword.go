// Package search scores free-text queries against weighted document fields.
// It mirrors the weighting the Postgres backend applies with setweight and ts_rank
// so the in-memory store ranks results the same way.
package search

import (
	"strings"
	"unicode"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// Field weights, highest first
const (
	WeightA = 1.0
	WeightB = 0.4
	WeightC = 0.1
)

// Field is one weighted block of document text
type Field struct {
	Text   string
	Weight float64
}

// Document is the searchable form of an entity
type Document []Field

// Query is a parsed keyword query. Every term must match for a document to qualify.
type Query struct {
	terms []string
}

// ParseQuery tokenizes text. An empty or punctuation-only query is invalid.
func ParseQuery(text string) (Query, error) {
	terms := Tokenize(text)
	if len(terms) == 0 {
		return Query{}, domain.NewInvalidQueryError("keyword query is empty")
	}
	return Query{terms: dedupe(terms)}, nil
}

// Terms returns the normalized query terms
func (q Query) Terms() []string {
	return append([]string(nil), q.terms...)
}

// Score returns the weighted match score of doc and whether every term matched
func (q Query) Score(doc Document) (float64, bool) {
	if len(q.terms) == 0 {
		return 0, false
	}
	tokenized := make([][]string, len(doc))
	for i, f := range doc {
		tokenized[i] = Tokenize(f.Text)
	}

	score := 0.0
	for _, term := range q.terms {
		best := 0.0
		hits := 0
		for i, f := range doc {
			n := count(tokenized[i], term)
			if n == 0 {
				continue
			}
			hits += n
			if f.Weight > best {
				best = f.Weight
			}
		}
		if hits == 0 {
			return 0, false
		}
		// strongest field counts fully, repeats add a diminishing bonus
		score += best + 0.01*float64(hits-1)
	}
	return domain.RoundTo(score/float64(len(q.terms)), 6), true
}

// Tokenize lowercases text, splits on non-alphanumerics and folds simple plurals
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		out = append(out, stem(f))
	}
	return out
}

func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "for": true, "in": true,
	"of": true, "on": true, "or": true, "the": true, "to": true, "with": true,
}

func count(tokens []string, term string) int {
	n := 0
	for _, t := range tokens {
		if t == term {
			n++
		}
	}
	return n
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// EventDocument weights title A, category and tags B, description C
func EventDocument(e *domain.Event) Document {
	return Document{
		{Text: e.Title, Weight: WeightA},
		{Text: e.Category + " " + strings.Join(e.Tags, " "), Weight: WeightB},
		{Text: e.Description, Weight: WeightC},
	}
}

// VenueDocument weights name A, amenities and type B, city and street C
func VenueDocument(v *domain.Venue) Document {
	return Document{
		{Text: v.Name, Weight: WeightA},
		{Text: strings.Join(v.Amenities, " ") + " " + string(v.VenueType), Weight: WeightB},
		{Text: v.Address.City + " " + v.Address.Street, Weight: WeightC},
	}
}
