// Package classifier turns a free-text editing instruction into a raw,
// untrusted intent record. The primary path asks an OpenAI-compatible
// model; a deterministic keyword parser covers every model failure.
package classifier

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"latex-editor/internal/logger"
	"latex-editor/internal/types"
)

// instructions is the fixed schema prompt sent ahead of the user's
// instruction. The model must answer with a single JSON object.
const instructions = `You classify natural-language instructions for editing a LaTeX document.
Respond with ONE JSON object and nothing else, using exactly these fields:

{
  "operation": "remove | replace | add | format | modify",
  "action": "operation_targettype tag, e.g. remove_table, replace_word, add_section, highlight_word, bold_text, modify_section",
  "target": "the literal text, section name, or \"all\"",
  "new_text": "replacement or inserted text, empty if none",
  "target_type": "word | phrase | sentence | paragraph | section | table | equation | content",
  "format_action": "highlight | bold | italic | underline, empty unless operation is format",
  "color": "yellow | red | green | blue | cyan | magenta | orange | pink, empty unless highlighting",
  "section_name": "anchor section for positioned adds, empty otherwise",
  "position": "before | after | beginning | end, empty unless operation is add",
  "confidence": 0.0-1.0
}

Examples:
"remove all tables" -> {"operation":"remove","action":"remove_table","target":"all","target_type":"table","confidence":0.95}
"remove the related works section" -> {"operation":"remove","action":"remove_section","target":"Related Works","target_type":"section","section_name":"Related Works","confidence":0.9}
"replace 'glucose' with 'blood glucose'" -> {"operation":"replace","action":"replace_word","target":"glucose","new_text":"blood glucose","target_type":"word","confidence":0.95}
"highlight FluentNet in yellow" -> {"operation":"format","action":"highlight_word","target":"FluentNet","target_type":"word","format_action":"highlight","color":"yellow","confidence":0.9}
"make 'Methods' bold" -> {"operation":"format","action":"bold_text","target":"Methods","target_type":"word","format_action":"bold","confidence":0.9}
"add a conclusion section" -> {"operation":"add","action":"add_section","target":"Conclusion","target_type":"section","position":"end","confidence":0.9}
"delete all equations" -> {"operation":"remove","action":"remove_equation","target":"all","target_type":"equation","confidence":0.95}
"improve the introduction section" -> {"operation":"modify","action":"modify_section","target":"Introduction","target_type":"section","section_name":"Introduction","confidence":0.85}`

// defaultConfidence is used when the model omits its self-reported value.
const defaultConfidence = 0.5

// maxAttempts caps credential-slot rotation per classification.
const maxAttempts = 5

// modelBuilder constructs a chat model bound to one API key.
type modelBuilder func(ctx context.Context, apiKey string) (generator, error)

// generator is the minimal model call surface.
type generator interface {
	generate(ctx context.Context, system, user string) (string, error)
}

// einoModel adapts the eino openai chat model to the generator surface.
type einoModel struct {
	cm *openai.ChatModel
}

func (m *einoModel) generate(ctx context.Context, system, user string) (string, error) {
	resp, err := m.cm.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Options configures a Classifier.
type Options struct {
	BaseURL            string
	Model              string
	RequestTimeout     time.Duration
	FallbackConfidence float64
}

// Classifier maps prompts to RawIntent records. It is safe for concurrent
// use; the key pool serializes slot state internally.
type Classifier struct {
	pool               *KeyPool
	baseURL            string
	model              string
	timeout            time.Duration
	fallbackConfidence float64
	build              modelBuilder
}

// New creates a Classifier over the given key pool.
func New(pool *KeyPool, opts Options) *Classifier {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.FallbackConfidence <= 0 {
		opts.FallbackConfidence = FallbackConfidence
	}

	c := &Classifier{
		pool:               pool,
		baseURL:            opts.BaseURL,
		model:              opts.Model,
		timeout:            opts.RequestTimeout,
		fallbackConfidence: opts.FallbackConfidence,
	}
	c.build = func(ctx context.Context, apiKey string) (generator, error) {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:   c.model,
			APIKey:  apiKey,
			BaseURL: c.baseURL,
			Timeout: c.timeout,
		})
		if err != nil {
			return nil, err
		}
		return &einoModel{cm: cm}, nil
	}
	return c
}

// Classify maps prompt to a RawIntent. The model path rotates key slots on
// rate limits; any terminal model failure falls back to the keyword
// parser. It returns UNPARSEABLE_INTENT only when the fallback finds no
// operation either.
func (c *Classifier) Classify(ctx context.Context, prompt string) (*types.RawIntent, error) {
	raw, err := c.classifyWithModel(ctx, prompt)
	if err == nil {
		return raw, nil
	}
	logger.Warn("model classification failed, using keyword fallback", logger.Err(err))

	if raw := FallbackParse(prompt); raw != nil {
		raw.Confidence = c.fallbackConfidence
		return raw, nil
	}
	return nil, types.NewAppErrorWithDetails(types.ErrUnparseableIntent,
		"could not derive an edit intent from the prompt", prompt, err)
}

// classifyWithModel runs the primary path: acquire a slot, call the model
// under the timeout, parse its JSON. Rate-limited slots are marked cooling
// and the call rotates to the next slot.
func (c *Classifier) classifyWithModel(ctx context.Context, prompt string) (*types.RawIntent, error) {
	attempts := maxAttempts
	if c.pool.Size() < attempts {
		attempts = c.pool.Size()
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		key, err := c.pool.Acquire()
		if err != nil {
			return nil, err
		}

		gen, err := c.build(ctx, key)
		if err != nil {
			lastErr = types.NewAppError(types.ErrClassifier, "failed to construct chat model", err)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		content, err := gen.generate(callCtx, instructions, prompt)
		cancel()

		if err != nil {
			if isRateLimit(err) {
				logger.Warn("classifier key rate limited, rotating",
					logger.Int("attempt", attempt+1),
					logger.Int("available", c.pool.Available()))
				c.pool.MarkRateLimited(key)
				lastErr = types.NewAppError(types.ErrAPIRateLimit, "classifier rate limited", err)
				continue
			}
			return nil, types.NewAppError(types.ErrClassifier, "model call failed", err)
		}

		c.pool.MarkSuccess(key)
		raw, err := parseModelResponse(content)
		if err != nil {
			return nil, err
		}
		logger.Debug("prompt classified",
			logger.String("operation", raw.Operation),
			logger.String("action", raw.Action),
			logger.Float64("confidence", raw.Confidence))
		return raw, nil
	}
	return nil, lastErr
}

// parseModelResponse strips code fences and decodes the model's JSON.
func parseModelResponse(content string) (*types.RawIntent, error) {
	text := stripCodeFence(content)
	raw := &types.RawIntent{}
	if err := json.Unmarshal([]byte(text), raw); err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrClassifier,
			"model response is not valid JSON", text, err)
	}
	if raw.Confidence == 0 {
		raw.Confidence = defaultConfidence
	}
	return raw, nil
}

// stripCodeFence unwraps ```json ... ``` fences models like to add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(s, "{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// isRateLimit recognizes quota errors across providers by message shape.
func isRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource exhausted")
}
