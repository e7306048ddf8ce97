package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/eslsoft/storyquest/internal/entity"
)

// RawKind tags the shape an AI backend returned.
type RawKind int

const (
	RawText RawKind = iota + 1
	RawFragments
	RawObject
)

func (k RawKind) String() string {
	switch k {
	case RawText:
		return "text"
	case RawFragments:
		return "fragments"
	case RawObject:
		return "object"
	default:
		return "unknown"
	}
}

// RawResponse is a provider response before normalisation. Exactly one of
// Text, Fragments or Object is meaningful, as selected by Kind.
type RawResponse struct {
	Kind      RawKind
	Text      string
	Fragments []string
	Object    map[string]any
}

func TextResponse(text string) RawResponse { return RawResponse{Kind: RawText, Text: text} }

func FragmentResponse(parts ...string) RawResponse {
	return RawResponse{Kind: RawFragments, Fragments: parts}
}

func ObjectResponse(obj map[string]any) RawResponse { return RawResponse{Kind: RawObject, Object: obj} }

// ParseError reports a response that could not be normalised.
type ParseError struct {
	What string
	Kind RawKind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s from %s response: %v", e.What, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var codeFence = regexp.MustCompile("```(?:json|JSON)?[ \t]*\\n?|\\n?```")

// StripCodeFences removes markdown code fences around a JSON payload.
func StripCodeFences(s string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(s, ""))
}

// payload flattens any response kind into JSON bytes.
func (r RawResponse) payload() ([]byte, error) {
	switch r.Kind {
	case RawText:
		text := StripCodeFences(r.Text)
		if text == "" {
			return nil, errors.New("empty text")
		}
		return []byte(text), nil
	case RawFragments:
		parts := make([]string, 0, len(r.Fragments))
		for _, p := range r.Fragments {
			if strings.TrimSpace(p) != "" {
				parts = append(parts, p)
			}
		}
		text := StripCodeFences(strings.Join(parts, "\n"))
		if text == "" {
			return nil, errors.New("no text fragments")
		}
		return []byte(text), nil
	case RawObject:
		if r.Object == nil {
			return nil, errors.New("nil object")
		}
		return json.Marshal(r.Object)
	default:
		return nil, fmt.Errorf("unsupported response kind %d", r.Kind)
	}
}

// ParsedStory is a normalised story response.
type ParsedStory struct {
	Story            string
	StoryZh          string
	HighlightedWords map[string][]int
}

type storyPayload struct {
	Story            string          `json:"story"`
	StoryZh          string          `json:"storyZh"`
	HighlightedWords json.RawMessage `json:"highlightedWords"`
}

// ParseStory normalises a story response. A response without story text is an error.
func ParseStory(raw RawResponse) (ParsedStory, error) {
	data, err := raw.payload()
	if err != nil {
		return ParsedStory{}, &ParseError{What: "story", Kind: raw.Kind, Err: err}
	}
	var p storyPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return ParsedStory{}, &ParseError{What: "story", Kind: raw.Kind, Err: err}
	}
	if strings.TrimSpace(p.Story) == "" {
		return ParsedStory{}, &ParseError{What: "story", Kind: raw.Kind, Err: errors.New("story text missing")}
	}
	return ParsedStory{
		Story:            p.Story,
		StoryZh:          p.StoryZh,
		HighlightedWords: parseHighlights(p.HighlightedWords),
	}, nil
}

// parseHighlights accepts {"word": [1, 2]} and drops anything malformed.
func parseHighlights(raw json.RawMessage) map[string][]int {
	out := map[string][]int{}
	if len(raw) == 0 {
		return out
	}
	var loose map[string]json.RawMessage
	if err := json.Unmarshal(raw, &loose); err != nil {
		return out
	}
	for word, positions := range loose {
		var nums []float64
		if err := json.Unmarshal(positions, &nums); err != nil {
			continue
		}
		idx := make([]int, 0, len(nums))
		for _, n := range nums {
			idx = append(idx, int(n))
		}
		out[word] = idx
	}
	return out
}

// ParsedCard is the AI-authored part of a challenge card. Fields may be empty.
type ParsedCard struct {
	TargetWord    string                `json:"targetWord"`
	Instruction   string                `json:"instruction"`
	InstructionZh string                `json:"instructionZh"`
	ReadingText   string                `json:"readingText"`
	ReadingHint   string                `json:"readingHint"`
	Keywords      []string              `json:"keywords"`
	Question      string                `json:"question"`
	QuestionZh    string                `json:"questionZh"`
	Options       []entity.ChoiceOption `json:"options"`
	StoryContext  string                `json:"storyContext"`
}

// ParseCards normalises a cards response. Entries that fail to decode come
// back as nil so callers can substitute defaults position by position.
func ParseCards(raw RawResponse) ([]*ParsedCard, error) {
	items, err := decodeList(raw, "cards")
	if err != nil {
		return nil, &ParseError{What: "cards", Kind: raw.Kind, Err: err}
	}
	cards := make([]*ParsedCard, len(items))
	for i, item := range items {
		var c ParsedCard
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		cards[i] = &c
	}
	return cards, nil
}

type recognizedPayload struct {
	Word         string   `json:"word"`
	Meaning      string   `json:"meaning"`
	PartOfSpeech string   `json:"partOfSpeech"`
	Confidence   *float64 `json:"confidence"`
}

// ParseRecognizedWords normalises a recognition response.
func ParseRecognizedWords(raw RawResponse) ([]entity.RecognizedWord, error) {
	items, err := decodeList(raw, "words")
	if err != nil {
		return nil, &ParseError{What: "words", Kind: raw.Kind, Err: err}
	}
	words := make([]entity.RecognizedWord, 0, len(items))
	for _, item := range items {
		var p recognizedPayload
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		text := strings.TrimSpace(p.Word)
		if text == "" {
			continue
		}
		words = append(words, entity.RecognizedWord{
			Word:         text,
			Meaning:      strings.TrimSpace(p.Meaning),
			PartOfSpeech: string(entity.NormalizePartOfSpeech(p.PartOfSpeech)),
			Confidence:   p.Confidence,
		})
	}
	return words, nil
}

// decodeList accepts either {"<key>": [...]} or a bare array.
func decodeList(raw RawResponse, key string) ([]json.RawMessage, error) {
	data, err := raw.payload()
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	field, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("missing %q field", key)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(field, &list); err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return list, nil
}
