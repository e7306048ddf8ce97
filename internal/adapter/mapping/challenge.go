package mapping

import (
	"strings"

	"github.com/samber/lo"

	storyquestv1 "github.com/eslsoft/storyquest/api/storyquest/v1"
	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/usecase"
)

func ToPbCard(c entity.ChallengeCard) storyquestv1.ChallengeCard {
	content := c.Content
	return storyquestv1.ChallengeCard{
		ID:         c.ID,
		StoryID:    c.StoryID,
		GroupIndex: c.GroupIndex,
		CardIndex:  c.CardIndex,
		CardType:   string(c.CardType),
		SubType:    string(c.SubType),
		TargetWord: c.TargetWord,
		Content: storyquestv1.CardContent{
			Instruction:   content.Instruction,
			InstructionZh: content.InstructionZh,
			ReadingText:   content.ReadingText,
			ReadingHint:   content.ReadingHint,
			Keywords:      content.Keywords,
			Question:      content.Question,
			QuestionZh:    content.QuestionZh,
			Options: lo.Map(content.Options, func(o entity.ChoiceOption, _ int) storyquestv1.ChoiceOption {
				return storyquestv1.ChoiceOption{Text: o.Text, TextZh: o.TextZh, IsCorrect: o.IsCorrect}
			}),
			CorrectOptionIndex: content.CorrectOptionIndex,
			ImageURL:           content.ImageURL,
			StoryContext:       content.StoryContext,
		},
	}
}

func ToPbResponse(r entity.ChallengeResponse) storyquestv1.ChallengeResponse {
	return storyquestv1.ChallengeResponse{
		Type:                string(r.Type),
		SpokenText:          r.SpokenText,
		MatchedKeywords:     r.MatchedKeywords,
		MatchPercentage:     r.MatchPercentage,
		SelectedOptionIndex: r.SelectedOptionIndex,
	}
}

func FromPbResponse(r storyquestv1.ChallengeResponse) entity.ChallengeResponse {
	return entity.ChallengeResponse{
		Type:                entity.CardType(strings.ToLower(strings.TrimSpace(r.Type))),
		SpokenText:          r.SpokenText,
		MatchedKeywords:     r.MatchedKeywords,
		MatchPercentage:     r.MatchPercentage,
		SelectedOptionIndex: r.SelectedOptionIndex,
		AudioBase64:         r.AudioBase64,
	}
}

func ToPbAttempt(a entity.ChallengeAttempt) storyquestv1.ChallengeAttempt {
	return storyquestv1.ChallengeAttempt{
		ID:            a.ID,
		CardID:        a.CardID,
		Passed:        a.Passed,
		Score:         a.Score,
		AttemptNumber: a.AttemptNumber,
		Response:      ToPbResponse(a.Response),
		CreatedAt:     formatTime(a.CreatedAt),
	}
}

func ToPbSpeechScore(s usecase.SpeechScore) storyquestv1.SpeechScore {
	return storyquestv1.SpeechScore{Text: s.Text, TotalScore: s.TotalScore}
}

func ToPbSubmitResult(r *usecase.SubmitResult) storyquestv1.SubmitAttemptResponse {
	out := storyquestv1.SubmitAttemptResponse{
		Passed:          r.Judgment.Passed,
		Score:           r.Judgment.Score,
		AttemptNumber:   r.Judgment.AttemptNumber,
		Hint:            r.Judgment.Hint,
		ShouldDowngrade: r.Judgment.ShouldDowngrade,
	}
	if r.Attempt != nil {
		out.Attempt = ToPbAttempt(*r.Attempt)
	}
	if r.Speech != nil {
		score := ToPbSpeechScore(*r.Speech)
		out.Speech = &score
	}
	return out
}

func ToPbGroupProgress(p entity.GroupProgress) storyquestv1.GroupProgress {
	return storyquestv1.GroupProgress{
		GroupIndex: p.GroupIndex,
		Cards: lo.Map(p.Cards, func(c entity.CardProgress, _ int) storyquestv1.CardProgress {
			return storyquestv1.CardProgress{
				Card:          ToPbCard(c.Card),
				TotalAttempts: c.TotalAttempts,
				Passed:        c.Passed,
				BestScore:     c.BestScore,
			}
		}),
		TotalCards:  p.TotalCards,
		PassedCards: p.PassedCards,
		AllPassed:   p.AllPassed,
		Percentage:  p.Percentage,
		Stars:       p.Stars,
	}
}

func ToPbTaskProgress(p entity.TaskProgress) storyquestv1.TaskProgress {
	return storyquestv1.TaskProgress{
		TaskID:      p.TaskID,
		Groups:      lo.Map(p.Groups, func(g entity.GroupProgress, _ int) storyquestv1.GroupProgress { return ToPbGroupProgress(g) }),
		TotalCards:  p.TotalCards,
		PassedCards: p.PassedCards,
		AllPassed:   p.AllPassed,
	}
}
