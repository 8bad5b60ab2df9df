package thought

import "time"

// DefaultSeedText greets a fresh session.
const DefaultSeedText = "Welcome to Threadline 🌿"

// Seed returns the forest every session starts with: a single calm root.
func Seed(ids IDGenerator, text string, now time.Time) []*Node {
	if text == "" {
		text = DefaultSeedText
	}
	return []*Node{NewNode(ids.NextID(), text, Calm, now.UTC())}
}
