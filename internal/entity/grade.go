package entity

import "strings"

// Grade identifies a learner level.
type Grade string

const (
	Grade1   Grade = "1"
	Grade2   Grade = "2"
	Grade3   Grade = "3"
	Grade4   Grade = "4"
	Grade5   Grade = "5"
	Grade6   Grade = "6"
	GradeKET Grade = "KET"
	GradePET Grade = "PET"
)

// Grades lists every supported grade from easiest to hardest.
var Grades = []Grade{Grade1, Grade2, Grade3, Grade4, Grade5, Grade6, GradeKET, GradePET}

// ParseGrade accepts a grade literal, case-insensitively for the exam levels.
func ParseGrade(raw string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := difficultyProfiles[g]; !ok {
		return "", ErrInvalidGrade
	}
	return g, nil
}

// Valid reports whether the grade has a difficulty profile.
func (g Grade) Valid() bool {
	_, ok := difficultyProfiles[g]
	return ok
}

// ReadingTarget is the unit a reading card asks the learner to read aloud.
type ReadingTarget string

const (
	ReadingTargetWord     ReadingTarget = "word"
	ReadingTargetPhrase   ReadingTarget = "phrase"
	ReadingTargetSentence ReadingTarget = "sentence"
)

// Range is an inclusive integer range.
type Range struct {
	Min int
	Max int
}

// DifficultyProfile drives story length and card content for a grade.
type DifficultyProfile struct {
	StoryLength      Range
	SentenceLength   Range
	ReadingTarget    ReadingTarget
	ChineseHintRatio float64
	ReadingCardRatio float64
	ChoiceCardRatio  float64
}

var difficultyProfiles = map[Grade]DifficultyProfile{
	Grade1: {
		StoryLength: Range{60, 100}, SentenceLength: Range{3, 6}, ReadingTarget: ReadingTargetWord,
		ChineseHintRatio: 0.8, ReadingCardRatio: 0.6, ChoiceCardRatio: 0.4,
	},
	Grade2: {
		StoryLength: Range{80, 120}, SentenceLength: Range{4, 7}, ReadingTarget: ReadingTargetWord,
		ChineseHintRatio: 0.7, ReadingCardRatio: 0.5, ChoiceCardRatio: 0.5,
	},
	Grade3: {
		StoryLength: Range{100, 150}, SentenceLength: Range{5, 8}, ReadingTarget: ReadingTargetPhrase,
		ChineseHintRatio: 0.6, ReadingCardRatio: 0.5, ChoiceCardRatio: 0.5,
	},
	Grade4: {
		StoryLength: Range{120, 180}, SentenceLength: Range{6, 10}, ReadingTarget: ReadingTargetPhrase,
		ChineseHintRatio: 0.5, ReadingCardRatio: 0.4, ChoiceCardRatio: 0.6,
	},
	Grade5: {
		StoryLength: Range{150, 220}, SentenceLength: Range{7, 12}, ReadingTarget: ReadingTargetSentence,
		ChineseHintRatio: 0.3, ReadingCardRatio: 0.4, ChoiceCardRatio: 0.6,
	},
	Grade6: {
		StoryLength: Range{180, 260}, SentenceLength: Range{8, 14}, ReadingTarget: ReadingTargetSentence,
		ChineseHintRatio: 0.2, ReadingCardRatio: 0.4, ChoiceCardRatio: 0.6,
	},
	GradeKET: {
		StoryLength: Range{200, 300}, SentenceLength: Range{8, 15}, ReadingTarget: ReadingTargetSentence,
		ChineseHintRatio: 0.15, ReadingCardRatio: 0.3, ChoiceCardRatio: 0.7,
	},
	GradePET: {
		StoryLength: Range{250, 350}, SentenceLength: Range{10, 18}, ReadingTarget: ReadingTargetSentence,
		ChineseHintRatio: 0.1, ReadingCardRatio: 0.3, ChoiceCardRatio: 0.7,
	},
}

// Difficulty returns the profile for the grade. Unknown grades fall back to grade 1.
func (g Grade) Difficulty() DifficultyProfile {
	if p, ok := difficultyProfiles[g]; ok {
		return p
	}
	return difficultyProfiles[Grade1]
}
