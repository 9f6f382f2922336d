// Package nlp provides a small rule-based part-of-speech tagger for Spanish
// requirement sentences. It distinguishes verbs and nouns well enough to tell a
// specific requirement ("el sistema debe registrar cada venta") from a vague one.
package nlp

import (
	"strings"
	"unicode"

	"github.com/melih/requirement-validator/internal/core/ports"
	"github.com/melih/requirement-validator/internal/core/validator"
)

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var (
	determiners = set(
		"el", "la", "los", "las", "un", "una", "unos", "unas", "del", "al",
		"su", "sus", "cada", "este", "esta", "estos", "estas", "ese", "esa",
		"esos", "esas", "todo", "toda", "todos", "todas", "cualquier",
		"mi", "mis", "nuestro", "nuestra", "nuestros", "nuestras",
	)
	functionWords = set(
		"de", "a", "en", "con", "por", "para", "sin", "sobre", "entre", "hasta",
		"desde", "y", "o", "e", "u", "ni", "que", "se", "no", "si", "lo", "le",
		"les", "como", "mas", "muy", "ya", "cuando", "donde", "mientras", "pero",
		"tambien", "solo", "menos", "algo", "tal", "vez", "quizas",
	)
	// conjugated forms common in requirement statements
	verbForms = set(
		"debe", "deben", "debera", "deberan", "deberia", "deberian",
		"puede", "pueden", "podra", "podran", "podria", "podrian",
		"tiene", "tienen", "tendra", "tendran", "es", "son", "sera", "seran",
		"estara", "estaran", "permite", "permiten", "permitira",
		"genera", "generan", "generara", "muestra", "muestran", "mostrara",
		"registra", "registran", "registrara", "calcula", "calculan", "calculara",
		"gestiona", "gestionan", "gestionara", "envia", "envian", "enviara",
		"valida", "validan", "validara", "almacena", "almacenan", "almacenara",
		"notifica", "notifican", "notificara", "soporta", "soportan", "soportara",
		"responde", "responden", "respondera", "procesa", "procesan", "procesara",
	)
	// infinitive-looking words that are nouns
	nounExceptions = set("lugar", "hogar", "mujer", "bar", "par", "nivel", "deber", "poder", "placer")
	nounSuffixes   = []string{"cion", "sion", "dad", "tad", "miento", "aje", "encia", "ancia", "ismo", "ema", "ario", "orio"}
)

// Tagger is a rule-based ports.Tagger for Spanish.
type Tagger struct{}

// NewTagger returns a Spanish tagger.
func NewTagger() *Tagger { return &Tagger{} }

// Tag splits text into words and labels each one VERB, NOUN or OTHER.
func (t *Tagger) Tag(text string) []ports.Token {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]ports.Token, 0, len(words))
	prevDeterminer := false
	for _, w := range words {
		norm := validator.Normalize(w)
		pos := classify(norm, prevDeterminer)
		tokens = append(tokens, ports.Token{Text: w, POS: pos})
		_, prevDeterminer = determiners[norm]
	}
	return tokens
}

func classify(w string, afterDeterminer bool) string {
	if w == "" || unicode.IsDigit([]rune(w)[0]) {
		return ports.POSOther
	}
	if _, ok := determiners[w]; ok {
		return ports.POSOther
	}
	if _, ok := functionWords[w]; ok {
		return ports.POSOther
	}
	if afterDeterminer {
		return ports.POSNoun
	}
	if _, ok := verbForms[w]; ok {
		return ports.POSVerb
	}
	if isInfinitive(w) {
		return ports.POSVerb
	}
	for _, suf := range nounSuffixes {
		if len(w) > len(suf)+1 && strings.HasSuffix(w, suf) {
			return ports.POSNoun
		}
	}
	return ports.POSOther
}

func isInfinitive(w string) bool {
	if len(w) < 4 {
		return false
	}
	if _, ok := nounExceptions[w]; ok {
		return false
	}
	return strings.HasSuffix(w, "ar") || strings.HasSuffix(w, "er") || strings.HasSuffix(w, "ir")
}
