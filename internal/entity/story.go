package entity

import "time"

// Story is the generated narrative for one word group.
type Story struct {
	ID               string
	TaskID           string
	GroupIndex       int
	Words            []string
	Content          string
	ContentZh        string
	HighlightedWords map[string][]int
	CreatedAt        time.Time
}
