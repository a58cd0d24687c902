package editor

import (
	"context"
	"errors"
	"fmt"

	"latex-editor/internal/generate"
	"latex-editor/internal/intent"
	"latex-editor/internal/latex"
	"latex-editor/internal/locator"
	"latex-editor/internal/logger"
	"latex-editor/internal/types"
)

// Classifier is the prompt-understanding dependency.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (*types.RawIntent, error)
}

// Validator turns raw classifier output into a validated intent.
type Validator func(*types.RawIntent) (*types.EditIntent, error)

// Orchestrator sequences classify -> validate -> locate -> apply and owns
// the failure taxonomy. Applicators stay pure; all I/O happens in the
// classifier and generator dependencies.
type Orchestrator struct {
	classifier Classifier
	validate   Validator
	generator  generate.Generator
	guard      *latex.MathGuard
}

// New builds an Orchestrator. A nil validator defaults to intent.Validate,
// a nil guard to latex.DefaultMathGuard, and a nil generator to static
// placeholder text.
func New(c Classifier, v Validator, g generate.Generator, guard *latex.MathGuard) *Orchestrator {
	if v == nil {
		v = intent.Validate
	}
	if guard == nil {
		guard = latex.DefaultMathGuard()
	}
	if g == nil {
		g = &generate.StaticGenerator{}
	}
	return &Orchestrator{classifier: c, validate: v, generator: g, guard: guard}
}

func failed(source string, reason types.FailureReason, msg string) *types.EditResult {
	return &types.EditResult{
		Success:    false,
		ResultText: source,
		Reason:     reason,
		Message:    msg,
	}
}

// EditOnce runs one instruction against one document snapshot. The result
// always carries a full document text: the new snapshot on success, the
// untouched input on failure. A prompt that matches nothing succeeds with
// zero changes.
func (o *Orchestrator) EditOnce(ctx context.Context, source, prompt string) *types.EditResult {
	raw, err := o.classifier.Classify(ctx, prompt)
	if err != nil {
		logger.Warn("intent classification failed", logger.String("prompt", prompt), logger.Err(err))
		return failed(source, types.FailUnparseableIntent, err.Error())
	}

	validated, err := o.validate(raw)
	if err != nil {
		logger.Warn("intent rejected", logger.String("prompt", prompt), logger.Err(err))
		return failed(source, types.FailInvalidIntent, err.Error())
	}

	result := o.apply(ctx, source, prompt, validated)
	logger.Info("edit completed",
		logger.String("action", validated.Action),
		logger.Bool("success", result.Success),
		logger.Int("changes", result.Changes))
	return result
}

// apply dispatches the validated intent to its applicator. A panic out of
// an applicator means a broken invariant, not a user error; it is caught
// and reported as an apply failure with the source untouched.
func (o *Orchestrator) apply(ctx context.Context, source, prompt string, in *types.EditIntent) (result *types.EditResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("applicator panic", fmt.Errorf("%v", r), logger.String("action", in.Action))
			result = failed(source, types.FailApply, fmt.Sprintf("internal apply error: %v", r))
			result.Operation = in.Operation
			result.Action = in.Action
			result.Intent = in
		}
	}()

	var (
		out     string
		changes int
	)

	switch in.Operation {
	case types.OpRemove:
		spans := locator.Locate(in, source)
		out, changes = Remove(in, spans, source, o.guard)
	case types.OpReplace:
		spans := locator.Locate(in, source)
		out, changes = Replace(in, spans, source)
	case types.OpFormat:
		spans := locator.Locate(in, source)
		out, changes = Format(in, spans, source)
	case types.OpAdd:
		body := in.NewText
		if body == "" {
			generated, err := o.generator.Generate(ctx, prompt, source)
			if err != nil {
				return o.generationFailure(source, in, err)
			}
			body = generated
		}
		out, changes = Add(in, source, body)
	case types.OpModify:
		return o.modify(ctx, source, prompt, in)
	default:
		return failed(source, types.FailApply, "no applicator for operation "+string(in.Operation))
	}

	return &types.EditResult{
		Success:    true,
		Operation:  in.Operation,
		Action:     in.Action,
		Changes:    changes,
		ResultText: out,
		Intent:     in,
		Message:    changeMessage(in.Action, changes, source, out),
	}
}

// modify rewrites the located span through the content generator. With no
// match it succeeds with zero changes, like every other applicator.
func (o *Orchestrator) modify(ctx context.Context, source, prompt string, in *types.EditIntent) *types.EditResult {
	spans := locator.Locate(in, source)
	if len(spans) == 0 {
		return &types.EditResult{
			Success:    true,
			Operation:  in.Operation,
			Action:     in.Action,
			Changes:    0,
			ResultText: source,
			Intent:     in,
			Message:    changeMessage(in.Action, 0, source, source),
		}
	}

	sp := spans[0]
	rewritten, err := o.generator.Generate(ctx, prompt, sp.Text(source))
	if err != nil {
		return o.generationFailure(source, in, err)
	}

	out := source[:sp.Start] + "\n" + rewritten + "\n" + source[sp.End:]
	return &types.EditResult{
		Success:    true,
		Operation:  in.Operation,
		Action:     in.Action,
		Changes:    1,
		ResultText: out,
		Intent:     in,
		Message:    changeMessage(in.Action, 1, source, out),
	}
}

func (o *Orchestrator) generationFailure(source string, in *types.EditIntent, err error) *types.EditResult {
	logger.Warn("content generation failed", logger.String("action", in.Action), logger.Err(err))
	result := failed(source, types.FailGeneration, err.Error())
	result.Operation = in.Operation
	result.Action = in.Action
	result.Intent = in
	return result
}

// EditBatch runs prompts strictly in sequence, each step's output feeding
// the next step's input. A failed step is recorded and the batch carries
// on with the prior text. Context cancellation stops before the next
// step; results already produced stand.
func (o *Orchestrator) EditBatch(ctx context.Context, source string, prompts []string) ([]*types.EditResult, string) {
	results := make([]*types.EditResult, 0, len(prompts))
	current := source

	for i, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			logger.Warn("batch cancelled",
				logger.Int("completed", i),
				logger.Int("total", len(prompts)))
			results = append(results, failed(current, types.FailApply, "batch cancelled: "+err.Error()))
			break
		}

		result := o.EditOnce(ctx, current, prompt)
		results = append(results, result)
		if result.Success {
			current = result.ResultText
		}
	}
	return results, current
}

// IsFailure reports whether err carries the given failure code.
func IsFailure(err error, code types.ErrorCode) bool {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
