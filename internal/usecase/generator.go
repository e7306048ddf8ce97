package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
)

const (
	minReadingCards = 2
	minChoiceCards  = 1
)

// GeneratedCard is a card ready to be persisted.
type GeneratedCard struct {
	CardType   entity.CardType
	SubType    entity.SubType
	TargetWord string
	Content    entity.CardContent
}

// ContentGenerator turns words into recognised vocabulary, stories and challenge cards.
type ContentGenerator interface {
	GenerateStory(ctx context.Context, words []entity.ConfirmedWord, grade entity.Grade, groupIndex int) (ParsedStory, error)
	GenerateChallengeCards(ctx context.Context, words []entity.ConfirmedWord, story string, grade entity.Grade) ([]GeneratedCard, error)
	RecognizeFromText(ctx context.Context, text string) ([]entity.RecognizedWord, error)
	RecognizeFromImage(ctx context.Context, imageURL string) ([]entity.RecognizedWord, error)
}

// NewContentGenerator wires the AI backend with a story style.
func NewContentGenerator(ai TextGenerator, style StoryStyle, logger logrus.FieldLogger) ContentGenerator {
	return &contentGenerator{ai: ai, style: style, log: logger}
}

type contentGenerator struct {
	ai    TextGenerator
	style StoryStyle
	log   logrus.FieldLogger
}

func generationError(step string, err error) error {
	return fmt.Errorf("%s: %w", step, errors.Join(entity.ErrGenerationFailed, err))
}

func (g *contentGenerator) GenerateStory(ctx context.Context, words []entity.ConfirmedWord, grade entity.Grade, groupIndex int) (ParsedStory, error) {
	raw, err := g.ai.Complete(ctx, ChatRequest{
		Model:  ModelText,
		Prompt: buildStoryPrompt(g.style, words, grade, groupIndex),
	})
	if err != nil {
		return ParsedStory{}, generationError("generate story", err)
	}
	story, err := ParseStory(raw)
	if err != nil {
		g.log.WithFields(logrus.Fields{"group_index": groupIndex, "kind": raw.Kind.String()}).
			WithError(err).Warn("story response could not be parsed")
		return ParsedStory{}, generationError("generate story", err)
	}
	return story, nil
}

// AssignCards maps each word to a card type by part of speech, then repairs
// the mix so a group has at least two reading cards and one choice card
// whenever the word count allows.
func AssignCards(words []entity.ConfirmedWord) []entity.CardAssignment {
	assignments := make([]entity.CardAssignment, len(words))
	reading, choice := 0, 0
	for i, w := range words {
		assignments[i] = entity.CardFor(entity.NormalizePartOfSpeech(string(w.PartOfSpeech)))
		if assignments[i].Type == entity.CardTypeReading {
			reading++
		} else {
			choice++
		}
	}

	if reading < minReadingCards {
		need := minReadingCards - reading
		for i := range assignments {
			if need == 0 {
				break
			}
			if assignments[i].Type == entity.CardTypeChoice {
				assignments[i] = entity.CardAssignment{Type: entity.CardTypeReading, SubType: entity.SubTypeFollowReading}
				need--
			}
		}
	}

	// The choice count is taken before the reading repair above.
	if choice < minChoiceCards {
		for i := len(assignments) - 1; i >= 0; i-- {
			if assignments[i].Type == entity.CardTypeReading {
				assignments[i] = entity.CardAssignment{Type: entity.CardTypeChoice, SubType: entity.SubTypeImageChoice}
				break
			}
		}
	}
	return assignments
}

func (g *contentGenerator) GenerateChallengeCards(ctx context.Context, words []entity.ConfirmedWord, story string, grade entity.Grade) ([]GeneratedCard, error) {
	if len(words) == 0 {
		return nil, nil
	}
	assignments := AssignCards(words)

	raw, err := g.ai.Complete(ctx, ChatRequest{
		Model:  ModelText,
		Prompt: buildCardPrompt(story, words, assignments, grade),
	})
	if err != nil {
		return nil, generationError("generate cards", err)
	}

	parsed, err := ParseCards(raw)
	if err != nil {
		g.log.WithFields(logrus.Fields{"kind": raw.Kind.String(), "words": len(words)}).
			WithError(err).Warn("cards response could not be parsed, using defaults")
		parsed = nil
	}

	cards := make([]GeneratedCard, len(assignments))
	for i, a := range assignments {
		var p *ParsedCard
		if i < len(parsed) {
			p = parsed[i]
		}
		cards[i] = GeneratedCard{
			CardType:   a.Type,
			SubType:    a.SubType,
			TargetWord: words[i].Word,
			Content:    buildCardContent(words[i].Word, p),
		}
	}
	return cards, nil
}

func buildCardContent(word string, p *ParsedCard) entity.CardContent {
	content := entity.CardContent{Instruction: "Learn: " + word}
	if p == nil {
		return content
	}
	if strings.TrimSpace(p.Instruction) != "" {
		content.Instruction = p.Instruction
	}
	content.InstructionZh = p.InstructionZh
	content.ReadingText = p.ReadingText
	content.ReadingHint = p.ReadingHint
	content.Keywords = p.Keywords
	content.Question = p.Question
	content.QuestionZh = p.QuestionZh
	content.Options = p.Options
	content.CorrectOptionIndex = entity.CorrectIndex(p.Options)
	content.StoryContext = p.StoryContext
	return content
}

func (g *contentGenerator) RecognizeFromText(ctx context.Context, text string) ([]entity.RecognizedWord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, entity.ErrNoWordsProvided
	}
	return g.recognize(ctx, ChatRequest{Model: ModelText, Prompt: buildTextRecognitionPrompt(text)})
}

func (g *contentGenerator) RecognizeFromImage(ctx context.Context, imageURL string) ([]entity.RecognizedWord, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, entity.ErrNoWordsProvided
	}
	return g.recognize(ctx, ChatRequest{Model: ModelVision, Prompt: buildImageRecognitionPrompt(), ImageURL: imageURL})
}

func (g *contentGenerator) recognize(ctx context.Context, req ChatRequest) ([]entity.RecognizedWord, error) {
	raw, err := g.ai.Complete(ctx, req)
	if err != nil {
		return nil, generationError("recognize words", err)
	}
	words, err := ParseRecognizedWords(raw)
	if err != nil {
		g.log.WithField("kind", raw.Kind.String()).WithError(err).Warn("recognition response could not be parsed")
		return nil, generationError("recognize words", err)
	}
	return words, nil
}
