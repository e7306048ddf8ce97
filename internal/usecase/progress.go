package usecase

import (
	"math"

	"github.com/eslsoft/storyquest/internal/entity"
)

// AggregateProgress summarises attempts over a group's cards. Cards are kept
// in the order given; attempts on other cards are ignored.
func AggregateProgress(groupIndex int, cards []entity.ChallengeCard, attempts []entity.ChallengeAttempt) entity.GroupProgress {
	byCard := make(map[string][]entity.ChallengeAttempt, len(cards))
	for _, a := range attempts {
		byCard[a.CardID] = append(byCard[a.CardID], a)
	}

	progress := entity.GroupProgress{
		GroupIndex: groupIndex,
		Cards:      make([]entity.CardProgress, 0, len(cards)),
		TotalCards: len(cards),
	}
	for _, card := range cards {
		cp := entity.CardProgress{Card: card}
		for _, a := range byCard[card.ID] {
			cp.TotalAttempts++
			if a.Passed {
				cp.Passed = true
			}
			if a.Score > cp.BestScore {
				cp.BestScore = a.Score
			}
		}
		if cp.Passed {
			progress.PassedCards++
		}
		progress.Cards = append(progress.Cards, cp)
	}

	progress.AllPassed = progress.TotalCards > 0 && progress.PassedCards == progress.TotalCards
	if progress.TotalCards > 0 {
		progress.Percentage = int(math.Round(float64(progress.PassedCards) * 100 / float64(progress.TotalCards)))
	}
	progress.Stars = StarRating(progress.PassedCards, progress.TotalCards)
	return progress
}

// StarRating awards three stars for a perfect group, two from 70% and one otherwise.
func StarRating(passed, total int) int {
	if total <= 0 {
		return 1
	}
	ratio := float64(passed) / float64(total)
	switch {
	case ratio >= 1:
		return 3
	case ratio >= 0.7:
		return 2
	default:
		return 1
	}
}

// AggregateTaskProgress rolls every group of a task up. Groups without cards
// still appear so the caller can see what has not been generated.
func AggregateTaskProgress(task *entity.Task, cards []entity.ChallengeCard, attempts []entity.ChallengeAttempt) entity.TaskProgress {
	byGroup := make(map[int][]entity.ChallengeCard)
	for _, c := range cards {
		byGroup[c.GroupIndex] = append(byGroup[c.GroupIndex], c)
	}

	out := entity.TaskProgress{TaskID: task.ID}
	for _, g := range task.WordGroups {
		gp := AggregateProgress(g.GroupIndex, byGroup[g.GroupIndex], attempts)
		out.Groups = append(out.Groups, gp)
		out.TotalCards += gp.TotalCards
		out.PassedCards += gp.PassedCards
	}
	out.AllPassed = len(out.Groups) > 0
	for _, gp := range out.Groups {
		if !gp.AllPassed {
			out.AllPassed = false
			break
		}
	}
	return out
}
