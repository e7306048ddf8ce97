package entity

import "time"

// ChallengeResponse is what the learner submitted for a card.
type ChallengeResponse struct {
	Type                CardType `json:"type"`
	SpokenText          string   `json:"spokenText,omitempty"`
	MatchedKeywords     []string `json:"matchedKeywords,omitempty"`
	MatchPercentage     *float64 `json:"matchPercentage,omitempty"`
	SelectedOptionIndex *int     `json:"selectedOptionIndex,omitempty"`

	// AudioBase64 is consumed by speech evaluation and never persisted.
	AudioBase64 string `json:"-"`
}

// Validate checks the response carries the fields its type needs.
func (r ChallengeResponse) Validate() error {
	switch r.Type {
	case CardTypeReading:
		if r.MatchPercentage == nil && r.AudioBase64 == "" {
			return ErrInvalidResponse
		}
		if r.MatchPercentage != nil && (*r.MatchPercentage < 0 || *r.MatchPercentage > 1) {
			return ErrInvalidResponse
		}
	case CardTypeChoice:
		if r.SelectedOptionIndex == nil || *r.SelectedOptionIndex < 0 {
			return ErrInvalidResponse
		}
	default:
		return ErrInvalidResponse
	}
	return nil
}

// ChallengeAttempt records a single judged submission. Attempts are never modified.
type ChallengeAttempt struct {
	ID            string
	CardID        string
	TaskID        string
	UserID        string
	Passed        bool
	Score         int
	Response      ChallengeResponse
	AttemptNumber int
	CreatedAt     time.Time
}
