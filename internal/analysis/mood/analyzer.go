package mood

import (
	"strings"

	"github.com/zhouzirui/threadline/backend/internal/model/thought"
)

// Suggestion is the heuristic mood guess for a piece of text.
type Suggestion struct {
	Mood  thought.Mood `json:"mood"`
	Score int          `json:"score"`
}

var keywordBuckets = map[thought.Mood][]string{
	thought.Calm: {
		"calm", "peace", "peaceful", "quiet", "slow", "breathe", "rest", "gentle", "soft", "relax",
		"still", "serene", "easy", "tea", "rain", "walk", "morning", "平静", "放松", "安静", "慢慢",
	},
	thought.Happy: {
		"happy", "glad", "great", "awesome", "amazing", "love", "yay", "thanks", "thank you", "fun",
		"excited", "nice", "wonderful", "lol", "haha", "开心", "高兴", "快乐", "太棒了", "哈哈",
	},
	thought.Thoughtful: {
		"think", "wonder", "maybe", "perhaps", "why", "how", "idea", "consider", "reflect", "question",
		"curious", "remember", "notice", "learn", "meaning", "思考", "为什么", "也许", "想法", "好奇",
	},
}

var punctuationBoost = map[thought.Mood]struct {
	mark  string
	score int
}{
	thought.Happy:      {mark: "!", score: 2},
	thought.Thoughtful: {mark: "?", score: 2},
}

// Suggest scores text against the keyword buckets. Without any signal it suggests
// the default mood with a zero score.
func Suggest(text string) Suggestion {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Suggestion{Mood: thought.DefaultMood}
	}

	scores := make(map[thought.Mood]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}
	for label, boost := range punctuationBoost {
		scores[label] += strings.Count(text, boost.mark) * boost.score
	}

	// Iterate in a fixed order so ties resolve the same way on every run.
	best := thought.DefaultMood
	bestScore := 0
	for _, label := range thought.Moods() {
		if s := scores[label]; s > bestScore {
			best = label
			bestScore = s
		}
	}
	return Suggestion{Mood: best, Score: bestScore}
}
