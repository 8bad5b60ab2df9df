package mood

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	analysis "github.com/zhouzirui/threadline/backend/internal/analysis/mood"
	"github.com/zhouzirui/threadline/backend/internal/model/thought"
)

// Config controls the classifier.
type Config struct {
	Enabled bool
}

// Guidance is a mood suggestion together with how much to trust it.
type Guidance struct {
	Mood       thought.Mood `json:"mood"`
	Confidence float32      `json:"confidence"`
	Reason     string       `json:"reason"`
	Source     string       `json:"source"`
}

const (
	SourceModel     = "model"
	SourceHeuristic = "heuristic"
)

// Service classifies text with a chat model and falls back to keyword heuristics.
type Service struct {
	enabled    bool
	classifier compose.Runnable[map[string]any, *schema.Message]
	fallback   func(text string) analysis.Suggestion
	logger     *zap.Logger
}

// NewService builds the classifier chain when cfg.Enabled and chatModel is non-nil;
// otherwise the service only runs the heuristic.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		enabled:  cfg.Enabled && chatModel != nil,
		fallback: analysis.Suggest,
		logger:   logger,
	}
	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(moodSystemPrompt),
		schema.UserMessage(moodUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile mood classifier chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled reports whether the model-backed classifier is active.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Classify never fails: any model problem degrades to the heuristic.
func (s *Service) Classify(ctx context.Context, text string) Guidance {
	trimmed := strings.TrimSpace(text)
	if !s.Enabled() || trimmed == "" {
		return s.fallbackGuidance(trimmed)
	}

	msg, err := s.classifier.Invoke(ctx, map[string]any{"text": trimmed})
	if err != nil {
		s.logger.Warn("mood classifier invoke failed, using fallback", zap.Error(err))
		return s.fallbackGuidance(trimmed)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.fallbackGuidance(trimmed)
	}

	payload, err := parseClassifierOutput(msg.Content)
	if err != nil {
		s.logger.Warn("mood classifier output unparseable, using fallback", zap.Error(err))
		return s.fallbackGuidance(trimmed)
	}

	m, err := thought.ParseMood(payload.Mood)
	if err != nil || strings.TrimSpace(payload.Mood) == "" {
		return s.fallbackGuidance(trimmed)
	}

	return Guidance{
		Mood:       m,
		Confidence: clampConfidence(payload.Confidence),
		Reason:     strings.TrimSpace(payload.Reason),
		Source:     SourceModel,
	}
}

func (s *Service) fallbackGuidance(text string) Guidance {
	fallback := analysis.Suggest
	if s != nil && s.fallback != nil {
		fallback = s.fallback
	}
	suggestion := fallback(text)

	confidence := float32(0.3)
	if suggestion.Score > 0 {
		confidence = 0.55
	}
	return Guidance{
		Mood:       suggestion.Mood,
		Confidence: confidence,
		Reason:     "fallback",
		Source:     SourceHeuristic,
	}
}

// parseClassifierOutput extracts the first JSON object from the model reply.
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func clampConfidence(val float32) float32 {
	if val <= 0 {
		return 0.6
	}
	if val > 1 {
		return 1
	}
	return val
}

type classifierPayload struct {
	Mood       string  `json:"mood"`
	Confidence float32 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Prompts go through FString formatting, so literal braces must not appear.
const moodSystemPrompt = "You tag short personal notes with a mood. Allowed moods: calm, happy, thoughtful.\nReply with a single JSON object and nothing else. Fields: mood (one of the allowed moods), confidence (number between 0 and 1), reason (short explanation)."

const moodUserPrompt = "Note:\n{text}\n\nReturn the JSON."
