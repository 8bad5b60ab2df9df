package thought

import (
	"fmt"
	"strings"
)

// Mood is the sentiment tag attached to every node.
type Mood string

const (
	Calm       Mood = "calm"
	Happy      Mood = "happy"
	Thoughtful Mood = "thoughtful"
)

// DefaultMood applies to roots and replies created without an explicit mood.
const DefaultMood = Thoughtful

// Moods lists the closed mood set in display order.
func Moods() []Mood {
	return []Mood{Calm, Happy, Thoughtful}
}

// Valid reports whether m belongs to the mood set.
func (m Mood) Valid() bool {
	switch m {
	case Calm, Happy, Thoughtful:
		return true
	default:
		return false
	}
}

// ParseMood normalises raw input. An empty value yields DefaultMood.
func ParseMood(raw string) (Mood, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return DefaultMood, nil
	}
	m := Mood(normalized)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mood %q", raw)
	}
	return m, nil
}
