package usecase

import (
	"errors"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":  `{"a":1}`,
		"```\n[1]\n```":            `[1]`,
		`{"a":1}`:                  `{"a":1}`,
		"  ```JSON {\"a\":1}```  ": `{"a":1}`,
	}
	for in, want := range cases {
		if got := StripCodeFences(in); got != want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseStoryAcceptsEveryKind(t *testing.T) {
	responses := map[string]RawResponse{
		"text": TextResponse("```json\n{\"story\":\"Momo saw an apple.\",\"storyZh\":\"莫莫看到一个苹果。\",\"highlightedWords\":{\"apple\":[3]}}\n```"),
		"fragments": FragmentResponse(
			`{"story":"Momo saw an apple.",`,
			`"storyZh":"莫莫看到一个苹果。","highlightedWords":{"apple":[3]}}`,
		),
		"object": ObjectResponse(map[string]any{
			"story":            "Momo saw an apple.",
			"storyZh":          "莫莫看到一个苹果。",
			"highlightedWords": map[string]any{"apple": []any{3.0}},
		}),
	}
	for name, raw := range responses {
		story, err := ParseStory(raw)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if story.Story != "Momo saw an apple." || story.StoryZh == "" {
			t.Fatalf("%s: unexpected story %+v", name, story)
		}
		if got := story.HighlightedWords["apple"]; len(got) != 1 || got[0] != 3 {
			t.Fatalf("%s: unexpected highlights %v", name, story.HighlightedWords)
		}
	}
}

func TestParseStoryFailures(t *testing.T) {
	responses := map[string]RawResponse{
		"prose":         TextResponse("Once upon a time"),
		"missing story": TextResponse(`{"storyZh":"只有中文"}`),
		"empty":         TextResponse("   "),
		"no fragments":  FragmentResponse("", " "),
		"nil object":    {Kind: RawObject},
		"unknown kind":  {},
	}
	for name, raw := range responses {
		_, err := ParseStory(raw)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("%s: expected ParseError, got %v", name, err)
		}
	}
}

func TestParseStoryToleratesBadHighlights(t *testing.T) {
	story, err := ParseStory(TextResponse(`{"story":"Pip flies.","highlightedWords":{"flies":"two","pip":[0]}}`))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := story.HighlightedWords["flies"]; ok {
		t.Fatalf("malformed highlight should be dropped")
	}
	if len(story.HighlightedWords["pip"]) != 1 {
		t.Fatalf("well formed highlight should be kept")
	}
}

func TestParseCardsShapes(t *testing.T) {
	wrapped, err := ParseCards(TextResponse(`{"cards":[{"instruction":"Read it"},{"instruction":"Pick one"}]}`))
	if err != nil || len(wrapped) != 2 || wrapped[1].Instruction != "Pick one" {
		t.Fatalf("wrapped cards: %v %+v", err, wrapped)
	}

	bare, err := ParseCards(TextResponse(`[{"instruction":"Read it"}]`))
	if err != nil || len(bare) != 1 {
		t.Fatalf("bare cards: %v %+v", err, bare)
	}

	mixed, err := ParseCards(TextResponse(`{"cards":[{"instruction":"ok"},{"keywords":"not-a-list"}]}`))
	if err != nil {
		t.Fatalf("mixed cards: %v", err)
	}
	if mixed[0] == nil || mixed[1] != nil {
		t.Fatalf("expected second card to be dropped, got %+v", mixed)
	}

	if _, err := ParseCards(TextResponse(`{"items":[]}`)); err == nil {
		t.Fatalf("expected error when cards field is missing")
	}
}

func TestParseRecognizedWords(t *testing.T) {
	words, err := ParseRecognizedWords(TextResponse("```json\n{\"words\":[{\"word\":\" apple \",\"meaning\":\"苹果\",\"partOfSpeech\":\"Noun\",\"confidence\":0.9},{\"word\":\"\"},{\"word\":\"quickly\",\"partOfSpeech\":\"adverb\"}]}\n```"))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].Word != "apple" || words[0].PartOfSpeech != "noun" || words[0].Confidence == nil {
		t.Fatalf("unexpected first word %+v", words[0])
	}
	if words[1].PartOfSpeech != "abstract" {
		t.Fatalf("unknown part of speech should fold to abstract, got %s", words[1].PartOfSpeech)
	}

	if _, err := ParseRecognizedWords(TextResponse("no json here")); err == nil {
		t.Fatalf("expected error for unparseable response")
	}
}
