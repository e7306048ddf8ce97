package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTaskTitleLength bounds task titles in characters.
const MaxTaskTitleLength = 100

// TaskStatus tracks where a task is in the generation lifecycle.
type TaskStatus string

const (
	TaskStatusUploaded   TaskStatus = "uploaded"
	TaskStatusConfirmed  TaskStatus = "confirmed"
	TaskStatusGenerating TaskStatus = "generating"
	TaskStatusReady      TaskStatus = "ready"
	TaskStatusCompleted  TaskStatus = "completed"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusUploaded:   {TaskStatusUploaded, TaskStatusConfirmed},
	TaskStatusConfirmed:  {TaskStatusConfirmed, TaskStatusGenerating},
	TaskStatusGenerating: {TaskStatusReady, TaskStatusConfirmed},
	TaskStatusReady:      {TaskStatusCompleted},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusUploaded, TaskStatusConfirmed, TaskStatusGenerating, TaskStatusReady, TaskStatusCompleted:
		return true
	}
	return false
}

// Task is a learner's vocabulary set moving through recognition, confirmation and generation.
type Task struct {
	ID              string
	UserID          string
	Title           string
	Grade           Grade
	Status          TaskStatus
	ImageURLs       []string
	RecognizedWords []RecognizedWord
	ConfirmedWords  []ConfirmedWord
	WordGroups      []WordGroup
	CreditsUsed     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NormalizeTaskTitle trims and validates a title.
func NormalizeTaskTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > MaxTaskTitleLength {
		return "", ErrInvalidTaskTitle
	}
	return title, nil
}

// Group returns the word group with the given index.
func (t *Task) Group(index int) (WordGroup, bool) {
	for _, g := range t.WordGroups {
		if g.GroupIndex == index {
			return g, true
		}
	}
	return WordGroup{}, false
}

// TaskDetail bundles a task with its generated content and the viewer's attempts.
type TaskDetail struct {
	Task     *Task
	Stories  []Story
	Cards    []ChallengeCard
	Attempts []ChallengeAttempt
}
