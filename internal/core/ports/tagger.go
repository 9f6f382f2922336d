package ports

// Part-of-speech labels reported by a Tagger.
const (
	POSVerb  = "VERB"
	POSNoun  = "NOUN"
	POSOther = "OTHER"
)

// Token is one word of tagged text.
type Token struct {
	Text string
	POS  string
}

// Tagger assigns grammatical categories to the words of a sentence.
type Tagger interface {
	Tag(text string) []Token
}
