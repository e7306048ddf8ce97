package usecase

import (
	"math"

	"github.com/eslsoft/storyquest/internal/entity"
)

const (
	ReadingPassThreshold = 0.70
	HintAfterFails       = 3
	DowngradeAfterFails  = 5
)

// Judgment is the verdict for one submission.
type Judgment struct {
	Passed          bool
	Score           int
	AttemptNumber   int
	Hint            string
	ShouldDowngrade bool
}

// Judge scores a response against a card given the learner's earlier attempts on it.
// The fail count covers every earlier failed attempt, not only a trailing streak.
func Judge(card entity.ChallengeCard, prior []entity.ChallengeAttempt, resp entity.ChallengeResponse) Judgment {
	var j Judgment
	switch resp.Type {
	case entity.CardTypeReading:
		match := 0.0
		if resp.MatchPercentage != nil {
			match = *resp.MatchPercentage
		}
		j.Passed = match >= ReadingPassThreshold
		j.Score = int(math.Round(match * 100))
	case entity.CardTypeChoice:
		correct := card.Content.CorrectOptionIndex
		j.Passed = correct != nil && resp.SelectedOptionIndex != nil && *resp.SelectedOptionIndex == *correct
		if j.Passed {
			j.Score = 100
		}
	}

	j.AttemptNumber = len(prior) + 1

	fails := 0
	for _, a := range prior {
		if !a.Passed {
			fails++
		}
	}
	if !j.Passed && fails >= HintAfterFails {
		j.Hint = card.Content.ReadingHint
		if j.Hint == "" {
			j.Hint = card.Content.InstructionZh
		}
	}
	if !j.Passed && fails >= DowngradeAfterFails {
		j.ShouldDowngrade = true
	}
	return j
}
