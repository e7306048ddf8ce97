package entity

import "strings"

// PartOfSpeech is the coarse word class used to pick a challenge card type.
type PartOfSpeech string

const (
	PartOfSpeechNoun      PartOfSpeech = "noun"
	PartOfSpeechVerb      PartOfSpeech = "verb"
	PartOfSpeechAdjective PartOfSpeech = "adjective"
	PartOfSpeechAbstract  PartOfSpeech = "abstract"
)

// NormalizePartOfSpeech maps free-form labels onto the four known classes.
// Anything unrecognised is treated as abstract.
func NormalizePartOfSpeech(raw string) PartOfSpeech {
	switch PartOfSpeech(strings.ToLower(strings.TrimSpace(raw))) {
	case PartOfSpeechNoun, "n", "n.":
		return PartOfSpeechNoun
	case PartOfSpeechVerb, "v", "v.":
		return PartOfSpeechVerb
	case PartOfSpeechAdjective, "adj", "adj.":
		return PartOfSpeechAdjective
	default:
		return PartOfSpeechAbstract
	}
}

// RecognizedWord is a raw candidate produced by text or image recognition.
type RecognizedWord struct {
	Word         string   `json:"word"`
	Meaning      string   `json:"meaning,omitempty"`
	PartOfSpeech string   `json:"partOfSpeech,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// ConfirmedWord is a word the parent approved for generation.
type ConfirmedWord struct {
	Word         string       `json:"word"`
	Meaning      string       `json:"meaning"`
	PartOfSpeech PartOfSpeech `json:"partOfSpeech"`
}

// Normalize trims text and folds the part of speech.
func (w ConfirmedWord) Normalize() ConfirmedWord {
	return ConfirmedWord{
		Word:         strings.TrimSpace(w.Word),
		Meaning:      strings.TrimSpace(w.Meaning),
		PartOfSpeech: NormalizePartOfSpeech(string(w.PartOfSpeech)),
	}
}

// WordGroup is one story's worth of words.
type WordGroup struct {
	GroupIndex int             `json:"groupIndex"`
	Words      []ConfirmedWord `json:"words"`
}

// WordTexts returns the plain words of the group in order.
func (g WordGroup) WordTexts() []string {
	out := make([]string, len(g.Words))
	for i, w := range g.Words {
		out[i] = w.Word
	}
	return out
}
