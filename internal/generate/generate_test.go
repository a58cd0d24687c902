package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"latex-editor/internal/classifier"
	"latex-editor/internal/types"
)

type stubCaller struct {
	content string
	err     error
}

func (s *stubCaller) call(context.Context, string, string) (string, error) {
	return s.content, s.err
}

func newTestGenerator(t *testing.T, keys []string, callers map[string]*stubCaller) *ModelGenerator {
	t.Helper()
	pool, err := classifier.NewKeyPool(keys, 60*time.Second)
	if err != nil {
		t.Fatalf("NewKeyPool: %v", err)
	}
	g := NewModelGenerator(pool, Options{Model: "gpt-4o-mini", RequestTimeout: time.Second})
	g.build = func(_ context.Context, apiKey string) (chatCaller, error) {
		c, ok := callers[apiKey]
		if !ok {
			return nil, errors.New("no caller for key " + apiKey)
		}
		return c, nil
	}
	return g
}

func TestModelGenerator_Generate(t *testing.T) {
	g := newTestGenerator(t, []string{"k1"}, map[string]*stubCaller{
		"k1": {content: "  Generated body text.\n"},
	})

	got, err := g.Generate(context.Background(), "add a limitations section", "some context")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Generated body text." {
		t.Errorf("got %q, want trimmed body text", got)
	}
}

func TestModelGenerator_RotatesOnRateLimit(t *testing.T) {
	g := newTestGenerator(t, []string{"k1", "k2"}, map[string]*stubCaller{
		"k1": {err: errors.New("429 Too Many Requests")},
		"k2": {content: "Body from the second slot."},
	})

	got, err := g.Generate(context.Background(), "add a section", "ctx")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Body from the second slot." {
		t.Errorf("got %q, want content from the rotated slot", got)
	}
}

func TestModelGenerator_TerminalError(t *testing.T) {
	g := newTestGenerator(t, []string{"k1", "k2"}, map[string]*stubCaller{
		"k1": {err: errors.New("connection refused")},
		"k2": {content: "never reached"},
	})

	_, err := g.Generate(context.Background(), "add a section", "ctx")
	if err == nil {
		t.Fatal("non-rate-limit errors must not rotate")
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrGeneration {
		t.Errorf("err = %v, want GENERATION_ERROR", err)
	}
}

func TestModelGenerator_TruncatesContext(t *testing.T) {
	var seen string
	pool, _ := classifier.NewKeyPool([]string{"k1"}, time.Minute)
	g := NewModelGenerator(pool, Options{Model: "m"})
	g.build = func(context.Context, string) (chatCaller, error) {
		return callerFunc(func(_ context.Context, _, user string) (string, error) {
			seen = user
			return "ok", nil
		}), nil
	}

	long := strings.Repeat("x", contextLimit+500)
	if _, err := g.Generate(context.Background(), "instr", long); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Count(seen, "x") != contextLimit {
		t.Errorf("context sent %d bytes of payload, want %d", strings.Count(seen, "x"), contextLimit)
	}
}

type callerFunc func(ctx context.Context, system, user string) (string, error)

func (f callerFunc) call(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

func TestStaticGenerator(t *testing.T) {
	s := &StaticGenerator{}
	got, err := s.Generate(context.Background(), "anything", "ctx")
	if err != nil || got == "" {
		t.Fatalf("default placeholder missing: %q, %v", got, err)
	}

	s = &StaticGenerator{Text: "Fixed."}
	got, _ = s.Generate(context.Background(), "anything", "ctx")
	if got != "Fixed." {
		t.Errorf("got %q, want configured text", got)
	}
}
