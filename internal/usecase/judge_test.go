package usecase

import (
	"testing"

	"github.com/eslsoft/storyquest/internal/entity"
)

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func failedAttempts(n int) []entity.ChallengeAttempt {
	out := make([]entity.ChallengeAttempt, n)
	for i := range out {
		out[i] = entity.ChallengeAttempt{AttemptNumber: i + 1}
	}
	return out
}

func readingCard() entity.ChallengeCard {
	return entity.ChallengeCard{
		ID:       "card-r",
		CardType: entity.CardTypeReading,
		Content:  entity.CardContent{Instruction: "Read", InstructionZh: "读一读", ReadingHint: "ap-ple"},
	}
}

func choiceCard(correct *int) entity.ChallengeCard {
	return entity.ChallengeCard{
		ID:       "card-c",
		CardType: entity.CardTypeChoice,
		Content:  entity.CardContent{Instruction: "Pick", InstructionZh: "选一选", CorrectOptionIndex: correct},
	}
}

func TestJudgeReadingThreshold(t *testing.T) {
	cases := []struct {
		match  float64
		passed bool
		score  int
	}{
		{0.70, true, 70},
		{0.69, false, 69},
		{0.694, false, 69},
		{1, true, 100},
		{0, false, 0},
		{0.856, true, 86},
	}
	for _, tc := range cases {
		j := Judge(readingCard(), nil, entity.ChallengeResponse{Type: entity.CardTypeReading, MatchPercentage: floatPtr(tc.match)})
		if j.Passed != tc.passed || j.Score != tc.score {
			t.Errorf("match %.3f: got passed=%v score=%d want passed=%v score=%d", tc.match, j.Passed, j.Score, tc.passed, tc.score)
		}
		if j.AttemptNumber != 1 {
			t.Errorf("match %.3f: attempt number %d", tc.match, j.AttemptNumber)
		}
	}
}

func TestJudgeChoice(t *testing.T) {
	card := choiceCard(intPtr(2))
	right := Judge(card, nil, entity.ChallengeResponse{Type: entity.CardTypeChoice, SelectedOptionIndex: intPtr(2)})
	if !right.Passed || right.Score != 100 {
		t.Fatalf("expected pass with 100, got %+v", right)
	}
	wrong := Judge(card, nil, entity.ChallengeResponse{Type: entity.CardTypeChoice, SelectedOptionIndex: intPtr(0)})
	if wrong.Passed || wrong.Score != 0 {
		t.Fatalf("expected fail with 0, got %+v", wrong)
	}
	unanswerable := Judge(choiceCard(nil), nil, entity.ChallengeResponse{Type: entity.CardTypeChoice, SelectedOptionIndex: intPtr(0)})
	if unanswerable.Passed {
		t.Fatalf("a card without a correct option must never pass")
	}
}

func TestJudgeHintAndDowngrade(t *testing.T) {
	fail := entity.ChallengeResponse{Type: entity.CardTypeReading, MatchPercentage: floatPtr(0.2)}
	pass := entity.ChallengeResponse{Type: entity.CardTypeReading, MatchPercentage: floatPtr(0.9)}

	if j := Judge(readingCard(), failedAttempts(2), fail); j.Hint != "" || j.ShouldDowngrade {
		t.Fatalf("two prior fails should not trigger hint: %+v", j)
	}
	j := Judge(readingCard(), failedAttempts(3), fail)
	if j.Hint != "ap-ple" || j.ShouldDowngrade || j.AttemptNumber != 4 {
		t.Fatalf("three prior fails should hint only: %+v", j)
	}
	j = Judge(readingCard(), failedAttempts(5), fail)
	if j.Hint == "" || !j.ShouldDowngrade || j.AttemptNumber != 6 {
		t.Fatalf("five prior fails should hint and downgrade: %+v", j)
	}
	if j := Judge(readingCard(), failedAttempts(5), pass); j.Hint != "" || j.ShouldDowngrade {
		t.Fatalf("a passing attempt never carries hint or downgrade: %+v", j)
	}
}

func TestJudgeHintFallsBackToChineseInstruction(t *testing.T) {
	j := Judge(choiceCard(intPtr(1)), failedAttempts(4), entity.ChallengeResponse{Type: entity.CardTypeChoice, SelectedOptionIndex: intPtr(0)})
	if j.Hint != "选一选" {
		t.Fatalf("expected instructionZh hint, got %q", j.Hint)
	}
}

func TestJudgeCountsAllPriorFails(t *testing.T) {
	prior := failedAttempts(3)
	prior = append(prior, entity.ChallengeAttempt{Passed: true, Score: 90})
	j := Judge(readingCard(), prior, entity.ChallengeResponse{Type: entity.CardTypeReading, MatchPercentage: floatPtr(0.1)})
	if j.Hint == "" {
		t.Fatalf("fails before a pass still count toward the hint threshold")
	}
	if j.AttemptNumber != 5 {
		t.Fatalf("expected attempt 5, got %d", j.AttemptNumber)
	}
}

func TestAggregateProgress(t *testing.T) {
	cards := []entity.ChallengeCard{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	attempts := []entity.ChallengeAttempt{
		{CardID: "a", Passed: false, Score: 40},
		{CardID: "a", Passed: true, Score: 80},
		{CardID: "b", Passed: true, Score: 100},
		{CardID: "other", Passed: true, Score: 100},
	}
	p := AggregateProgress(0, cards, attempts)
	if p.TotalCards != 3 || p.PassedCards != 2 || p.AllPassed {
		t.Fatalf("unexpected totals %+v", p)
	}
	if p.Cards[0].TotalAttempts != 2 || p.Cards[0].BestScore != 80 || !p.Cards[0].Passed {
		t.Fatalf("unexpected card a progress %+v", p.Cards[0])
	}
	if p.Cards[2].TotalAttempts != 0 || p.Cards[2].Passed || p.Cards[2].BestScore != 0 {
		t.Fatalf("unexpected card c progress %+v", p.Cards[2])
	}
	if p.Percentage != 67 || p.Stars != 1 {
		t.Fatalf("unexpected rating %d%% %d stars", p.Percentage, p.Stars)
	}

	attempts = append(attempts, entity.ChallengeAttempt{CardID: "c", Passed: true, Score: 75})
	p = AggregateProgress(0, cards, attempts)
	if !p.AllPassed || p.Stars != 3 || p.Percentage != 100 {
		t.Fatalf("expected all passed with 3 stars, got %+v", p)
	}
}

func TestAggregateProgressEmptyGroup(t *testing.T) {
	p := AggregateProgress(1, nil, nil)
	if p.AllPassed || p.TotalCards != 0 {
		t.Fatalf("an empty group is never all passed: %+v", p)
	}
}

func TestStarRating(t *testing.T) {
	cases := []struct{ passed, total, want int }{
		{5, 5, 3}, {4, 5, 2}, {7, 10, 2}, {6, 10, 1}, {0, 5, 1}, {0, 0, 1},
	}
	for _, tc := range cases {
		if got := StarRating(tc.passed, tc.total); got != tc.want {
			t.Errorf("StarRating(%d,%d) = %d want %d", tc.passed, tc.total, got, tc.want)
		}
	}
}
