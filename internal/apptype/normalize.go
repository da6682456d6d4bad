package apptype

import (
	"fmt"
	"strings"

	"github.com/rehacentrum/booking-engine/internal/textfold"
)

// spokenPhrases maps accent-free phrases heard from callers onto type keys.
// Only exact matches count: booking the wrong type is worse than asking again.
var spokenPhrases = map[string]string{
	"vstupne vysetrenie": InitialExam,
	"vstupne":            InitialExam,
	"vstup":              InitialExam,
	"prve vysetrenie":    InitialExam,

	"kontrolne vysetrenie": FollowUpExam,
	"kontrolne":            FollowUpExam,
	"kontrola":             FollowUpExam,

	"sportova prehliadka": SportsExam,
	"sportova":            SportsExam,
	"sportove":            SportsExam,
	"sport":               SportsExam,

	"zdravotnicke pomocky": MedicalAids,
	"pomocky":              MedicalAids,

	"konzultacia": Consultation,
	"konzultacie": Consultation,
}

// UnknownTypeError is returned when input matches no appointment type.
type UnknownTypeError struct {
	Input string
	Valid []string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown appointment type %q, valid types: %s", e.Input, strings.Join(e.Valid, ", "))
}

// Normalizer resolves free-form type names against a catalog.
type Normalizer struct {
	catalog *Catalog
	phrases map[string]string
}

// NewNormalizer indexes the spoken phrase table plus every key and display
// name present in the catalog.
func NewNormalizer(catalog *Catalog) *Normalizer {
	n := &Normalizer{
		catalog: catalog,
		phrases: make(map[string]string, len(spokenPhrases)+2*len(catalog.order)),
	}
	for phrase, key := range spokenPhrases {
		if _, ok := catalog.Get(key); ok {
			n.phrases[phrase] = key
		}
	}
	for _, t := range catalog.All() {
		n.phrases[textfold.String(t.Name)] = t.Key
		n.phrases[textfold.String(strings.ReplaceAll(t.Key, "_", " "))] = t.Key
	}
	return n
}

// Normalize returns the canonical key for input, or input unchanged when
// nothing matches so that downstream validation reports it.
func (n *Normalizer) Normalize(input string) string {
	if _, ok := n.catalog.Get(input); ok {
		return input
	}
	folded := textfold.String(strings.ReplaceAll(input, "_", " "))
	if key, ok := n.phrases[folded]; ok {
		return key
	}
	return input
}

// Resolve normalizes input and returns its type.
func (n *Normalizer) Resolve(input string) (Type, error) {
	key := n.Normalize(input)
	if t, ok := n.catalog.Get(key); ok {
		return t, nil
	}
	return Type{}, &UnknownTypeError{Input: input, Valid: n.catalog.Keys()}
}
