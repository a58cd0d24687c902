package editor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"latex-editor/internal/classifier"
	"latex-editor/internal/latex"
	"latex-editor/internal/types"
)

// scriptedClassifier returns canned raw intents in order.
type scriptedClassifier struct {
	raws []*types.RawIntent
	errs []error
	call int
}

func (s *scriptedClassifier) Classify(context.Context, string) (*types.RawIntent, error) {
	i := s.call
	s.call++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var raw *types.RawIntent
	if i < len(s.raws) {
		raw = s.raws[i]
	}
	return raw, err
}

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(context.Context, string, string) (string, error) {
	return "", f.err
}

const paperDoc = `\documentclass{article}
\begin{document}
\section{Introduction}
Earlier work on glucose prediction is broad.

\section{Related Works}
Prior glucose surveys cover the field.

\section{Data}
We use the OhioT1DM dataset.

\section{Methods}
Steps are listed here.

\section{Experiments}
Runs were repeated five times.

\section{Results}
Numbers improved.

\section{Discussion}
Findings are mixed.

\section{Limitations}
Scope is narrow.

\section{Conclusion}
We summarize.
\end{document}`

func TestEditOnce_RemoveSection(t *testing.T) {
	o := New(classifier.KeywordClassifier{}, nil, nil, nil)

	before := latex.FindSections(paperDoc)
	if len(before) != 9 {
		t.Fatalf("fixture has %d sections, want 9", len(before))
	}
	var removed latex.Span
	for _, h := range before {
		if h.Title == "Related Works" {
			removed = h.FullSpan()
		}
	}

	result := o.EditOnce(context.Background(), paperDoc, "remove the related works section")
	if !result.Success {
		t.Fatalf("edit failed: %s", result.Message)
	}
	if result.Changes != 1 {
		t.Errorf("changes = %d, want 1", result.Changes)
	}
	if result.Operation != types.OpRemove {
		t.Errorf("operation = %q, want remove", result.Operation)
	}

	after := latex.FindSections(result.ResultText)
	if len(after) != 8 {
		t.Fatalf("sections after = %d, want 8", len(after))
	}
	if after[0].Title != "Introduction" || after[1].Title != "Data" {
		t.Errorf("Data must directly follow Introduction, got %q then %q",
			after[0].Title, after[1].Title)
	}
	if strings.Contains(result.ResultText, "Related Works") {
		t.Error("removed section text still present")
	}
	if got, want := len(paperDoc)-len(result.ResultText), removed.Len(); got != want {
		t.Errorf("length shrank by %d bytes, want %d (only the section span)", got, want)
	}
}

func TestEditOnce_NoMatchSucceedsWithZeroChanges(t *testing.T) {
	o := New(classifier.KeywordClassifier{}, nil, nil, nil)

	result := o.EditOnce(context.Background(), paperDoc, "remove the word flibbertigibbet")
	if !result.Success {
		t.Fatalf("no-match edit must still succeed: %s", result.Message)
	}
	if result.Changes != 0 {
		t.Errorf("changes = %d, want 0", result.Changes)
	}
	if result.ResultText != paperDoc {
		t.Error("document must be unchanged")
	}
	if !strings.Contains(result.Message, "unchanged") {
		t.Errorf("message should say the document is unchanged: %q", result.Message)
	}
}

func TestEditOnce_BareRemoveAllTouchesNothing(t *testing.T) {
	doc := "We report all results. Not all runs converged.\n"
	o := New(classifier.KeywordClassifier{}, nil, nil, nil)

	result := o.EditOnce(context.Background(), doc, "remove all")
	if !result.Success {
		t.Fatalf("bare bulk removal must not fail: %s", result.Message)
	}
	if result.Changes != 0 {
		t.Errorf("changes = %d, want 0", result.Changes)
	}
	if result.ResultText != doc {
		t.Errorf("occurrences of the word \"all\" must survive: %q", result.ResultText)
	}
}

func TestEditOnce_UnparseablePrompt(t *testing.T) {
	o := New(classifier.KeywordClassifier{}, nil, nil, nil)

	result := o.EditOnce(context.Background(), paperDoc, "what a lovely document")
	if result.Success {
		t.Fatal("conversational prompt must not succeed")
	}
	if result.Reason != types.FailUnparseableIntent {
		t.Errorf("reason = %q, want %q", result.Reason, types.FailUnparseableIntent)
	}
	if result.ResultText != paperDoc {
		t.Error("failed edit must return the input text")
	}
}

func TestEditOnce_InvalidIntent(t *testing.T) {
	sc := &scriptedClassifier{raws: []*types.RawIntent{{
		Operation:  "remove",
		Action:     "highlight_word",
		Target:     "glucose",
		TargetType: "word",
		Confidence: 0.9,
	}}}
	o := New(sc, nil, nil, nil)

	result := o.EditOnce(context.Background(), paperDoc, "remove glucose")
	if result.Success {
		t.Fatal("mismatched operation and action must be rejected")
	}
	if result.Reason != types.FailInvalidIntent {
		t.Errorf("reason = %q, want %q", result.Reason, types.FailInvalidIntent)
	}
	if !strings.Contains(result.Message, "action") {
		t.Errorf("message must name the offending field: %q", result.Message)
	}
}

func TestEditOnce_AddUsesGenerator(t *testing.T) {
	sc := &scriptedClassifier{raws: []*types.RawIntent{{
		Operation:  "add",
		Action:     "add_section",
		Target:     "Future Work",
		TargetType: "section",
		Position:   "end",
		Confidence: 0.9,
	}}}
	o := New(sc, nil, nil, nil)

	result := o.EditOnce(context.Background(), paperDoc, "add a future work section")
	if !result.Success {
		t.Fatalf("add failed: %s", result.Message)
	}
	if !strings.Contains(result.ResultText, `\section{Future Work}`) {
		t.Error("new section heading missing")
	}
	// the default generator supplies placeholder body text
	if !strings.Contains(result.ResultText, "forthcoming") {
		t.Error("generated placeholder body missing")
	}
}

func TestEditOnce_GenerationFailure(t *testing.T) {
	sc := &scriptedClassifier{raws: []*types.RawIntent{{
		Operation:  "add",
		Action:     "add_section",
		Target:     "Future Work",
		TargetType: "section",
		Position:   "end",
		Confidence: 0.9,
	}}}
	genErr := types.NewAppError(types.ErrGeneration, "model unavailable", nil)
	o := New(sc, nil, failingGenerator{err: genErr}, nil)

	result := o.EditOnce(context.Background(), paperDoc, "add a future work section")
	if result.Success {
		t.Fatal("generator failure must fail the edit")
	}
	if result.Reason != types.FailGeneration {
		t.Errorf("reason = %q, want %q", result.Reason, types.FailGeneration)
	}
	if result.ResultText != paperDoc {
		t.Error("failed edit must return the input text")
	}
}

func TestEditBatch_SequencesOverMutatedText(t *testing.T) {
	doc := "\\documentclass{article}\n\\begin{document}\n\\section{Methods}\nThe glucose trend and the glucose model.\n\\end{document}"
	o := New(classifier.KeywordClassifier{}, nil, nil, nil)

	prompts := []string{
		"replace 'glucose' with 'blood glucose'",
		"make 'Methods' bold",
	}
	results, final := o.EditBatch(context.Background(), doc, prompts)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if !results[0].Success || results[0].Changes != 2 {
		t.Fatalf("first step: success=%v changes=%d, want success with 2",
			results[0].Success, results[0].Changes)
	}
	if !results[1].Success || results[1].Changes != 1 {
		t.Fatalf("second step: success=%v changes=%d, want success with 1",
			results[1].Success, results[1].Changes)
	}

	// the second step ran on the first step's output
	if !strings.Contains(final, "blood glucose trend") {
		t.Errorf("first edit lost: %q", final)
	}
	if !strings.Contains(final, `\textbf{Methods}`) {
		t.Errorf("second edit missing: %q", final)
	}
	if final != results[1].ResultText {
		t.Error("final text must be the last successful result")
	}
}

func TestEditBatch_FailureDoesNotAbort(t *testing.T) {
	doc := "\\section{Methods}\nThe glucose value.\n"
	o := New(classifier.KeywordClassifier{}, nil, nil, nil)

	results, final := o.EditBatch(context.Background(), doc, []string{
		"what a lovely document",
		"replace 'glucose' with 'blood glucose'",
	})
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Success {
		t.Error("first step should fail")
	}
	if !results[1].Success {
		t.Fatalf("second step should run against the untouched text: %s", results[1].Message)
	}
	if !strings.Contains(final, "blood glucose") {
		t.Errorf("second edit missing from final text: %q", final)
	}
}

func TestEditBatch_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(classifier.KeywordClassifier{}, nil, nil, nil)
	results, final := o.EditBatch(ctx, paperDoc, []string{
		"remove the related works section",
		"make 'Methods' bold",
	})
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 cancellation record", len(results))
	}
	if results[0].Success {
		t.Error("cancellation record must not be a success")
	}
	if !strings.Contains(results[0].Message, "cancelled") {
		t.Errorf("message = %q, want cancellation notice", results[0].Message)
	}
	if final != paperDoc {
		t.Error("cancelled batch must leave the text untouched")
	}
}

func TestIsFailure(t *testing.T) {
	err := types.NewAppError(types.ErrAllSlotsExhausted, "no usable credential slot", nil)
	if !IsFailure(err, types.ErrAllSlotsExhausted) {
		t.Error("matching code not recognized")
	}
	if IsFailure(err, types.ErrClassifier) {
		t.Error("mismatched code recognized")
	}
	if IsFailure(errors.New("plain"), types.ErrClassifier) {
		t.Error("plain error recognized")
	}
}
