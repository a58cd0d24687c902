// Package generate authors LaTeX body text for the add and modify paths.
// The orchestrator only sees the Generator interface; a failure here is
// scoped to the single operation that asked for text.
package generate

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"latex-editor/internal/classifier"
	"latex-editor/internal/logger"
	"latex-editor/internal/types"
)

// Generator authors text for an instruction given surrounding document
// context.
type Generator interface {
	Generate(ctx context.Context, instruction, documentContext string) (string, error)
}

const systemPrompt = `You write LaTeX body text for an academic document.
Follow the instruction and match the tone of the provided context.
Return only the body text: no \section heading, no preamble, no code fences.`

// contextLimit caps how much surrounding document is sent along.
const contextLimit = 4000

// Options configures a ModelGenerator.
type Options struct {
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
}

// ModelGenerator produces text with an OpenAI-compatible model, drawing
// keys from the same rotating pool the classifier uses.
type ModelGenerator struct {
	pool    *classifier.KeyPool
	baseURL string
	model   string
	timeout time.Duration
	build   func(ctx context.Context, apiKey string) (chatCaller, error)
}

// chatCaller is the minimal model surface; tests substitute a stub.
type chatCaller interface {
	call(ctx context.Context, system, user string) (string, error)
}

type einoCaller struct {
	cm *openai.ChatModel
}

func (c *einoCaller) call(ctx context.Context, system, user string) (string, error) {
	resp, err := c.cm.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// NewModelGenerator creates a ModelGenerator over the shared key pool.
func NewModelGenerator(pool *classifier.KeyPool, opts Options) *ModelGenerator {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	g := &ModelGenerator{
		pool:    pool,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		timeout: opts.RequestTimeout,
	}
	g.build = func(ctx context.Context, apiKey string) (chatCaller, error) {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:   g.model,
			APIKey:  apiKey,
			BaseURL: g.baseURL,
			Timeout: g.timeout,
		})
		if err != nil {
			return nil, err
		}
		return &einoCaller{cm: cm}, nil
	}
	return g
}

// Generate asks the model for body text. Rate-limited keys are parked and
// the call rotates; other failures surface as GENERATION_ERROR.
func (g *ModelGenerator) Generate(ctx context.Context, instruction, documentContext string) (string, error) {
	if len(documentContext) > contextLimit {
		documentContext = documentContext[:contextLimit]
	}
	user := "Instruction: " + instruction + "\n\nDocument context:\n" + documentContext

	attempts := 3
	if g.pool.Size() < attempts {
		attempts = g.pool.Size()
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		key, err := g.pool.Acquire()
		if err != nil {
			return "", types.NewAppError(types.ErrGeneration, "no usable API key for generation", err)
		}

		caller, err := g.build(ctx, key)
		if err != nil {
			lastErr = err
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		content, err := caller.call(callCtx, systemPrompt, user)
		cancel()

		if err != nil {
			if isRateLimit(err) {
				logger.Warn("generation key rate limited, rotating", logger.Int("attempt", attempt+1))
				g.pool.MarkRateLimited(key)
				lastErr = err
				continue
			}
			return "", types.NewAppError(types.ErrGeneration, "content generation failed", err)
		}

		g.pool.MarkSuccess(key)
		return strings.TrimSpace(content), nil
	}
	return "", types.NewAppError(types.ErrGeneration, "content generation failed", lastErr)
}

func isRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "quota")
}

// StaticGenerator returns fixed placeholder text, for offline use and for
// degrading gracefully when no model is configured.
type StaticGenerator struct {
	Text string
}

// Generate returns the configured placeholder.
func (s *StaticGenerator) Generate(ctx context.Context, instruction, documentContext string) (string, error) {
	if s.Text != "" {
		return s.Text, nil
	}
	return "Content for this section is forthcoming.", nil
}
