package usecase

import (
	"strings"

	"github.com/eslsoft/storyquest/internal/entity"
)

const (
	minGroupSize         = 5
	maxGroupSize         = 6
	singleGroupThreshold = 6
)

// GroupWords splits confirmed words into contiguous groups of five to six,
// preserving order. The last group may be shorter when the words run out.
func GroupWords(words []entity.ConfirmedWord) []entity.WordGroup {
	total := len(words)
	if total == 0 {
		return nil
	}
	if total <= singleGroupThreshold {
		return []entity.WordGroup{{GroupIndex: 0, Words: append([]entity.ConfirmedWord(nil), words...)}}
	}

	numGroups := ceilDiv(total, minGroupSize)
	groups := make([]entity.WordGroup, 0, numGroups)
	next := 0
	for i := 0; i < numGroups; i++ {
		remaining := total - next
		if remaining <= 0 {
			break
		}
		size := clamp(ceilDiv(remaining, numGroups-i), minGroupSize, maxGroupSize)
		end := min(next+size, total)
		groups = append(groups, entity.WordGroup{
			GroupIndex: i,
			Words:      append([]entity.ConfirmedWord(nil), words[next:end]...),
		})
		next = end
	}
	return groups
}

// ValidateGroups checks that groups are non-empty, indexed 0..k-1 in order
// and together hold exactly the confirmed words. It returns the flattened
// word order implied by the groups.
func ValidateGroups(confirmed []entity.ConfirmedWord, groups []entity.WordGroup) ([]entity.ConfirmedWord, error) {
	if len(groups) == 0 {
		return nil, entity.ErrInvalidWordGroups
	}
	want := make(map[string]int, len(confirmed))
	for _, w := range confirmed {
		want[wordKey(w)]++
	}

	flat := make([]entity.ConfirmedWord, 0, len(confirmed))
	for i, g := range groups {
		if g.GroupIndex != i || len(g.Words) == 0 {
			return nil, entity.ErrInvalidWordGroups
		}
		for _, w := range g.Words {
			w = w.Normalize()
			if w.Word == "" {
				return nil, entity.ErrInvalidWordGroups
			}
			key := wordKey(w)
			if want[key] == 0 {
				return nil, entity.ErrInvalidWordGroups
			}
			want[key]--
			flat = append(flat, w)
		}
	}
	for _, left := range want {
		if left != 0 {
			return nil, entity.ErrInvalidWordGroups
		}
	}
	return flat, nil
}

func wordKey(w entity.ConfirmedWord) string {
	return strings.ToLower(strings.TrimSpace(w.Word))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
