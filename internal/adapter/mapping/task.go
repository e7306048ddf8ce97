package mapping

import (
	"strings"
	"time"

	"github.com/samber/lo"

	storyquestv1 "github.com/eslsoft/storyquest/api/storyquest/v1"
	"github.com/eslsoft/storyquest/internal/entity"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func ToPbRecognizedWords(in []entity.RecognizedWord) []storyquestv1.RecognizedWord {
	return lo.Map(in, func(w entity.RecognizedWord, _ int) storyquestv1.RecognizedWord {
		return storyquestv1.RecognizedWord{
			Word:         w.Word,
			Meaning:      w.Meaning,
			PartOfSpeech: w.PartOfSpeech,
			Confidence:   w.Confidence,
		}
	})
}

func ToPbWords(in []entity.ConfirmedWord) []storyquestv1.Word {
	return lo.Map(in, func(w entity.ConfirmedWord, _ int) storyquestv1.Word {
		return storyquestv1.Word{Word: w.Word, Meaning: w.Meaning, PartOfSpeech: string(w.PartOfSpeech)}
	})
}

// FromPbWords keeps the part of speech as sent; the usecase normalises it.
func FromPbWords(in []storyquestv1.Word) []entity.ConfirmedWord {
	return lo.Map(in, func(w storyquestv1.Word, _ int) entity.ConfirmedWord {
		return entity.ConfirmedWord{
			Word:         strings.TrimSpace(w.Word),
			Meaning:      strings.TrimSpace(w.Meaning),
			PartOfSpeech: entity.PartOfSpeech(strings.TrimSpace(w.PartOfSpeech)),
		}
	})
}

func ToPbWordGroups(in []entity.WordGroup) []storyquestv1.WordGroup {
	return lo.Map(in, func(g entity.WordGroup, _ int) storyquestv1.WordGroup {
		return storyquestv1.WordGroup{GroupIndex: g.GroupIndex, Words: ToPbWords(g.Words)}
	})
}

func FromPbWordGroups(in []storyquestv1.WordGroup) []entity.WordGroup {
	return lo.Map(in, func(g storyquestv1.WordGroup, _ int) entity.WordGroup {
		return entity.WordGroup{GroupIndex: g.GroupIndex, Words: FromPbWords(g.Words)}
	})
}

func ToPbTask(t *entity.Task) storyquestv1.Task {
	if t == nil {
		return storyquestv1.Task{}
	}
	return storyquestv1.Task{
		ID:              t.ID,
		Title:           t.Title,
		Grade:           string(t.Grade),
		Status:          string(t.Status),
		ImageURLs:       lo.Ternary(t.ImageURLs == nil, []string{}, t.ImageURLs),
		RecognizedWords: ToPbRecognizedWords(t.RecognizedWords),
		ConfirmedWords:  ToPbWords(t.ConfirmedWords),
		WordGroups:      ToPbWordGroups(t.WordGroups),
		CreditsUsed:     t.CreditsUsed,
		CreatedAt:       formatTime(t.CreatedAt),
		UpdatedAt:       formatTime(t.UpdatedAt),
	}
}

func ToPbStory(s entity.Story) storyquestv1.Story {
	return storyquestv1.Story{
		ID:               s.ID,
		GroupIndex:       s.GroupIndex,
		Words:            s.Words,
		Content:          s.Content,
		ContentZh:        s.ContentZh,
		HighlightedWords: s.HighlightedWords,
		CreatedAt:        formatTime(s.CreatedAt),
	}
}

func ToPbTaskDetail(d *entity.TaskDetail) storyquestv1.TaskDetail {
	return storyquestv1.TaskDetail{
		Task:     ToPbTask(d.Task),
		Stories:  lo.Map(d.Stories, func(s entity.Story, _ int) storyquestv1.Story { return ToPbStory(s) }),
		Cards:    lo.Map(d.Cards, func(c entity.ChallengeCard, _ int) storyquestv1.ChallengeCard { return ToPbCard(c) }),
		Attempts: lo.Map(d.Attempts, func(a entity.ChallengeAttempt, _ int) storyquestv1.ChallengeAttempt { return ToPbAttempt(a) }),
	}
}
