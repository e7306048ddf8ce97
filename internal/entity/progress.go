package entity

// CardProgress summarises a learner's attempts on one card.
type CardProgress struct {
	Card          ChallengeCard
	TotalAttempts int
	Passed        bool
	BestScore     int
}

// GroupProgress summarises a learner's attempts across one group's cards.
type GroupProgress struct {
	GroupIndex  int
	Cards       []CardProgress
	TotalCards  int
	PassedCards int
	AllPassed   bool
	Percentage  int
	Stars       int
}

// TaskProgress rolls group progress up to the task.
type TaskProgress struct {
	TaskID      string
	Groups      []GroupProgress
	TotalCards  int
	PassedCards int
	AllPassed   bool
}
