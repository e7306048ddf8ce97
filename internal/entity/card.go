package entity

import "time"

// CardType separates read-aloud cards from multiple-choice cards.
type CardType string

const (
	CardTypeReading CardType = "reading"
	CardTypeChoice  CardType = "choice"
)

// SubType refines how a card is presented.
type SubType string

const (
	SubTypeImageChoice       SubType = "image_choice"
	SubTypeActionReading     SubType = "action_reading"
	SubTypeExpressionReplace SubType = "expression_replace"
	SubTypeFollowReading     SubType = "follow_reading"
)

// CardAssignment pairs a card type with its sub type.
type CardAssignment struct {
	Type    CardType
	SubType SubType
}

var partOfSpeechCards = map[PartOfSpeech]CardAssignment{
	PartOfSpeechNoun:      {CardTypeChoice, SubTypeImageChoice},
	PartOfSpeechVerb:      {CardTypeReading, SubTypeActionReading},
	PartOfSpeechAdjective: {CardTypeChoice, SubTypeExpressionReplace},
	PartOfSpeechAbstract:  {CardTypeReading, SubTypeFollowReading},
}

// CardFor returns the default card for a part of speech.
func CardFor(pos PartOfSpeech) CardAssignment {
	if a, ok := partOfSpeechCards[pos]; ok {
		return a
	}
	return partOfSpeechCards[PartOfSpeechAbstract]
}

// ChoiceOption is one answer of a choice card.
type ChoiceOption struct {
	Text      string `json:"text"`
	TextZh    string `json:"textZh,omitempty"`
	IsCorrect bool   `json:"isCorrect"`
}

// CardContent is the learner-facing payload of a challenge card.
type CardContent struct {
	Instruction   string `json:"instruction"`
	InstructionZh string `json:"instructionZh,omitempty"`

	ReadingText string   `json:"readingText,omitempty"`
	ReadingHint string   `json:"readingHint,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`

	Question           string         `json:"question,omitempty"`
	QuestionZh         string         `json:"questionZh,omitempty"`
	Options            []ChoiceOption `json:"options,omitempty"`
	CorrectOptionIndex *int           `json:"correctOptionIndex,omitempty"`
	ImageURL           string         `json:"imageUrl,omitempty"`

	StoryContext string `json:"storyContext,omitempty"`
}

// CorrectIndex returns the index of the first correct option, or nil when none is marked.
func CorrectIndex(options []ChoiceOption) *int {
	for i, opt := range options {
		if opt.IsCorrect {
			idx := i
			return &idx
		}
	}
	return nil
}

// ChallengeCard is one learning exercise derived from a story.
type ChallengeCard struct {
	ID         string
	StoryID    string
	TaskID     string
	GroupIndex int
	CardIndex  int
	CardType   CardType
	SubType    SubType
	TargetWord string
	Content    CardContent
	CreatedAt  time.Time
}
