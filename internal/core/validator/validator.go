// Package validator checks software requirements written in Spanish for length,
// ambiguity, type keywords, grammatical specificity and measurability.
package validator

import (
	"fmt"
	"strings"

	"github.com/melih/requirement-validator/internal/core/domain"
	"github.com/melih/requirement-validator/internal/core/ports"
)

// Issue and suggestion types reported to clients.
const (
	IssueLength      = "Longitud Insuficiente"
	IssueAmbiguity   = "Ambigüedad"
	IssueKeywords    = "Ausencia de Palabras Clave"
	IssueSpecificity = "Falta de Especificidad"
	HintMeasurable   = "Medibilidad"
)

const minWords = 5

var (
	weakWords = []string{
		"algo", "algún", "algunos", "tal vez", "quizás", "podría",
		"aproximadamente", "más o menos", "creo que", "parece",
	}
	functionalKeywords = []string{
		"debe", "debería", "tiene que", "permitir", "gestionar",
		"calcular", "mostrar", "registrar", "generar",
	}
	nonFunctionalKeywords = []string{
		"rendimiento", "seguridad", "escalabilidad", "disponibilidad",
		"usabilidad", "tiempo de respuesta", "número de usuarios",
	}
	// Matched against accent-stripped text like the other lists, so "maximo" counts too.
	metricIndicators = []string{"máximo", "mínimo", "al menos", "no más de", "%"}
)

// term keeps a word list entry as shown to users next to its matching form.
type term struct {
	display    string
	normalized string
}

func terms(words []string) []term {
	norm := normalizeAll(words)
	out := make([]term, len(words))
	for i := range words {
		out[i] = term{display: words[i], normalized: norm[i]}
	}
	return out
}

// Validator runs the requirement checks. The zero value is not usable; call New.
type Validator struct {
	tagger        ports.Tagger
	weak          []term
	functional    []term
	nonFunctional []term
	metrics       []term
}

// New returns a Validator. A nil tagger disables the grammatical specificity check.
func New(tagger ports.Tagger) *Validator {
	return &Validator{
		tagger:        tagger,
		weak:          terms(weakWords),
		functional:    terms(functionalKeywords),
		nonFunctional: terms(nonFunctionalKeywords),
		metrics:       terms(metricIndicators),
	}
}

// Validate checks a single requirement. functional selects which keyword family applies.
func (v *Validator) Validate(requirement string, functional bool) domain.Validation {
	requirement = strings.TrimSpace(requirement)
	normalized := Normalize(requirement)

	result := domain.Validation{
		OriginalText: requirement,
		IsValid:      true,
		Errors:       []domain.Issue{},
		Suggestions:  []domain.Suggestion{},
	}
	fail := func(issue domain.Issue) {
		result.IsValid = false
		result.Errors = append(result.Errors, issue)
	}

	if len(strings.Fields(requirement)) < minWords {
		fail(domain.Issue{
			Type:        IssueLength,
			Description: "El requerimiento es demasiado corto para ser significativo.",
			Suggestion:  "Expanda su requerimiento para incluir más detalles específicos.",
		})
	}

	if found := matching(v.weak, normalized); len(found) > 0 {
		fail(domain.Issue{
			Type:        IssueAmbiguity,
			Description: fmt.Sprintf("Se encontraron palabras ambiguas: %s", strings.Join(found, ", ")),
			Suggestion:  "Reemplace palabras vagas con términos precisos y concretos.",
		})
	}

	keywords := v.nonFunctional
	if functional {
		keywords = v.functional
	}
	if len(matching(keywords, normalized)) == 0 {
		fail(domain.Issue{
			Type:        IssueKeywords,
			Description: "No se encontraron palabras características del tipo de requerimiento.",
			Suggestion:  fmt.Sprintf("Incluya palabras como: %s", strings.Join(displays(keywords[:3]), ", ")),
		})
	}

	if v.tagger != nil {
		var verbs, nouns int
		for _, tok := range v.tagger.Tag(requirement) {
			switch tok.POS {
			case ports.POSVerb:
				verbs++
			case ports.POSNoun:
				nouns++
			}
		}
		if verbs == 0 || nouns < 2 {
			fail(domain.Issue{
				Type:        IssueSpecificity,
				Description: "El requerimiento carece de verbos o sustantivos específicos.",
				Suggestion:  "Defina claramente la acción (verbo) y el objeto (sustantivo) del requerimiento.",
			})
		}
	}

	if functional && len(matching(v.metrics, normalized)) == 0 {
		result.Suggestions = append(result.Suggestions, domain.Suggestion{
			Type:           HintMeasurable,
			Description:    "No se detectaron métricas específicas.",
			Recommendation: "Considere agregar métricas o criterios de aceptación medibles.",
		})
	}

	return result
}

// matching returns the display form of every term contained in text, in list order.
func matching(list []term, text string) []string {
	var found []string
	for _, t := range list {
		if strings.Contains(text, t.normalized) {
			found = append(found, t.display)
		}
	}
	return found
}

func displays(list []term) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.display
	}
	return out
}
