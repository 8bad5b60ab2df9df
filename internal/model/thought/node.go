package thought

import (
	"encoding/json"
	"time"
)

// Node is a single thought. A node never changes after construction; growing the
// tree produces new nodes along the path to the insertion point.
type Node struct {
	id        string
	text      string
	mood      Mood
	createdAt time.Time
	replies   []*Node
}

// NewNode builds a leaf. Callers are expected to pass trimmed, non-blank text and a
// valid mood; the forest store enforces both.
func NewNode(id, text string, mood Mood, createdAt time.Time) *Node {
	return &Node{id: id, text: text, mood: mood, createdAt: createdAt}
}

func (n *Node) ID() string           { return n.id }
func (n *Node) Text() string         { return n.text }
func (n *Node) Mood() Mood           { return n.mood }
func (n *Node) CreatedAt() time.Time { return n.createdAt }

// Replies returns the children in insertion order. The slice is a copy.
func (n *Node) Replies() []*Node {
	return append([]*Node(nil), n.replies...)
}

// ReplyCount avoids the copy made by Replies.
func (n *Node) ReplyCount() int {
	return len(n.replies)
}

// withReplies returns a shallow copy of n that owns the given reply slice.
func (n *Node) withReplies(replies []*Node) *Node {
	clone := *n
	clone.replies = replies
	return &clone
}

// View is the JSON shape of a node and its subtree.
type View struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Mood      Mood      `json:"mood"`
	CreatedAt time.Time `json:"createdAt"`
	Replies   []View    `json:"replies"`
}

// View renders the subtree rooted at n.
func (n *Node) View() View {
	v := View{
		ID:        n.id,
		Text:      n.text,
		Mood:      n.mood,
		CreatedAt: n.createdAt,
		Replies:   make([]View, 0, len(n.replies)),
	}
	for _, child := range n.replies {
		v.Replies = append(v.Replies, child.View())
	}
	return v
}

// MarshalJSON encodes the node together with its subtree.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.View())
}
