package forest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/threadline/backend/internal/model/thought"
	"github.com/zhouzirui/threadline/backend/internal/service/notify"
)

var (
	ErrBlankText      = errors.New("text is required")
	ErrInvalidMood    = errors.New("invalid mood")
	ErrTargetNotFound = errors.New("target node not found")
)

// GrowthMessage is the toast text published after the forest grows.
const GrowthMessage = "Your tree grew +1 branch"

// Policy decides when mutations publish a notification.
type Policy string

const (
	// PolicyCorrected notifies only when a node was created.
	PolicyCorrected Policy = "corrected"
	// PolicyLegacy also notifies when a reply targeted a missing node.
	PolicyLegacy Policy = "legacy"
)

// ParsePolicy accepts "corrected" and "legacy"; empty means corrected.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyCorrected:
		return PolicyCorrected, nil
	case PolicyLegacy:
		return PolicyLegacy, nil
	default:
		return "", errors.New("unknown notify policy " + raw)
	}
}

// Notifier receives growth notifications. *notify.Hub satisfies it.
type Notifier interface {
	Publish(ctx context.Context, n notify.Notification) notify.Notification
}

// Status classifies the outcome of a mutation.
type Status int

const (
	Created Status = iota
	InvalidInput
	TargetNotFound
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case InvalidInput:
		return "invalid_input"
	case TargetNotFound:
		return "target_not_found"
	default:
		return "unknown"
	}
}

// Result is what CreateRoot and AddReply hand back. Node is set only for Created.
type Result struct {
	Status   Status
	Node     *thought.Node
	Notified bool
	err      error
}

// Err maps the outcome onto the package sentinel errors; nil for Created.
func (r Result) Err() error {
	return r.err
}

// Options configures a Store. Zero values select sensible defaults.
type Options struct {
	IDs      thought.IDGenerator
	Notifier Notifier
	Policy   Policy
	Logger   *zap.Logger
	Clock    func() time.Time
	SeedText string
}

// Store owns the authoritative forest. Every mutation replaces the whole forest slice
// under the lock, so readers observe either the old or the new forest.
type Store struct {
	mu       sync.RWMutex
	roots    []*thought.Node
	ids      thought.IDGenerator
	notifier Notifier
	policy   Policy
	logger   *zap.Logger
	now      func() time.Time
}

// NewStore creates a store holding the session seed.
func NewStore(opts Options) *Store {
	s := newStore(opts)
	s.roots = thought.Seed(s.ids, opts.SeedText, s.now())
	return s
}

// NewStoreFrom creates a store over an existing forest, e.g. for tests. The caller
// must guarantee ids are unique and not produced again by opts.IDs.
func NewStoreFrom(roots []*thought.Node, opts Options) *Store {
	s := newStore(opts)
	s.roots = append([]*thought.Node(nil), roots...)
	return s
}

func newStore(opts Options) *Store {
	s := &Store{
		ids:      opts.IDs,
		notifier: opts.Notifier,
		policy:   opts.Policy,
		logger:   opts.Logger,
		now:      opts.Clock,
	}
	if s.ids == nil {
		s.ids = thought.UUIDGenerator{}
	}
	if s.policy == "" {
		s.policy = PolicyCorrected
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Policy reports the active notification policy.
func (s *Store) Policy() Policy {
	return s.policy
}

// CreateRoot appends a new thread to the end of the forest.
func (s *Store) CreateRoot(ctx context.Context, text, mood string) Result {
	node, res, ok := s.prepare(text, mood)
	if !ok {
		return res
	}

	s.mu.Lock()
	next := make([]*thought.Node, len(s.roots), len(s.roots)+1)
	copy(next, s.roots)
	s.roots = append(next, node)
	s.mu.Unlock()

	s.logger.Debug("root created", zap.String("nodeID", node.ID()), zap.String("mood", string(node.Mood())))
	res = Result{Status: Created, Node: node}
	res.Notified = s.publish(ctx, node.ID(), "")
	return res
}

// AddReply attaches a new node as the last reply of targetID, at any depth.
func (s *Store) AddReply(ctx context.Context, targetID, text, mood string) Result {
	node, res, ok := s.prepare(text, mood)
	if !ok {
		return res
	}

	s.mu.Lock()
	next, matches := thought.AppendReply(s.roots, targetID, node)
	s.roots = next
	s.mu.Unlock()

	if matches == 0 {
		s.logger.Debug("reply target not found", zap.String("parentID", targetID))
		res = Result{Status: TargetNotFound, err: ErrTargetNotFound}
		if s.policy == PolicyLegacy {
			res.Notified = s.publish(ctx, "", targetID)
		}
		return res
	}
	if matches > 1 {
		s.logger.Warn("reply attached to duplicated id", zap.String("parentID", targetID), zap.Int("matches", matches))
	}

	s.logger.Debug("reply created", zap.String("nodeID", node.ID()), zap.String("parentID", targetID))
	res = Result{Status: Created, Node: node}
	res.Notified = s.publish(ctx, node.ID(), targetID)
	return res
}

// prepare validates input and allocates the node. It never touches the forest.
func (s *Store) prepare(text, mood string) (*thought.Node, Result, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, Result{Status: InvalidInput, err: ErrBlankText}, false
	}
	m, err := thought.ParseMood(mood)
	if err != nil {
		return nil, Result{Status: InvalidInput, err: errors.Join(ErrInvalidMood, err)}, false
	}
	return thought.NewNode(s.ids.NextID(), trimmed, m, s.now().UTC()), Result{}, true
}

func (s *Store) publish(ctx context.Context, nodeID, parentID string) bool {
	if s.notifier == nil {
		return false
	}
	s.notifier.Publish(ctx, notify.Notification{
		Kind:     notify.KindTreeGrew,
		Message:  GrowthMessage,
		NodeID:   nodeID,
		ParentID: parentID,
	})
	return true
}

// Snapshot is an immutable view of the forest at one point in time.
type Snapshot struct {
	Roots []*thought.Node
	Stats Stats
}

// Stats summarises the forest shape.
type Stats struct {
	Roots    int `json:"roots"`
	Nodes    int `json:"nodes"`
	MaxDepth int `json:"maxDepth"`
}

// Forest returns the current forest. The returned slice is a copy and the nodes are
// immutable, so callers cannot alter the store through it.
func (s *Store) Forest(_ context.Context) Snapshot {
	roots := s.current()
	return Snapshot{Roots: append([]*thought.Node(nil), roots...), Stats: statsOf(roots)}
}

// Find looks up a node anywhere in the forest.
func (s *Store) Find(_ context.Context, id string) (*thought.Node, bool) {
	return thought.Find(s.current(), id)
}

// Stats computes counters over the current forest.
func (s *Store) Stats(_ context.Context) Stats {
	return statsOf(s.current())
}

func (s *Store) current() []*thought.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roots
}

func statsOf(roots []*thought.Node) Stats {
	return Stats{
		Roots:    len(roots),
		Nodes:    thought.Count(roots),
		MaxDepth: thought.MaxDepth(roots),
	}
}
