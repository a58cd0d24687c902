package intent

import (
	"errors"
	"strings"
	"testing"

	"latex-editor/internal/types"
)

func mustValidate(t *testing.T, raw *types.RawIntent) *types.EditIntent {
	t.Helper()
	out, err := Validate(raw)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return out
}

func wantInvalid(t *testing.T, raw *types.RawIntent, field string) {
	t.Helper()
	_, err := Validate(raw)
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrInvalidIntent {
		t.Fatalf("code = %s, want %s", appErr.Code, types.ErrInvalidIntent)
	}
	if !strings.HasPrefix(appErr.Details, field+":") {
		t.Errorf("details %q do not name field %q", appErr.Details, field)
	}
}

func TestValidate_AcceptsConsistentIntents(t *testing.T) {
	tests := []struct {
		name string
		raw  *types.RawIntent
		want types.Operation
	}{
		{
			name: "bulk table removal",
			raw:  &types.RawIntent{Operation: "remove", Action: "remove_table", Target: "all", TargetType: "table", Confidence: 0.95},
			want: types.OpRemove,
		},
		{
			name: "word replace",
			raw:  &types.RawIntent{Operation: "replace", Action: "replace_word", Target: "AI", NewText: "Artificial Intelligence", TargetType: "word", Confidence: 0.9},
			want: types.OpReplace,
		},
		{
			name: "highlight with color",
			raw:  &types.RawIntent{Operation: "format", Action: "highlight_word", Target: "FluentNet", TargetType: "word", FormatAction: "highlight", Color: "yellow", Confidence: 0.9},
			want: types.OpFormat,
		},
		{
			name: "paragraph highlight",
			raw:  &types.RawIntent{Operation: "format", Action: "highlight_paragraph", Target: "prior work", TargetType: "paragraph", FormatAction: "highlight", Color: "yellow", Confidence: 0.85},
			want: types.OpFormat,
		},
		{
			name: "paragraph bold",
			raw:  &types.RawIntent{Operation: "format", Action: "bold_text", Target: "prior work", TargetType: "paragraph", FormatAction: "bold", Confidence: 0.85},
			want: types.OpFormat,
		},
		{
			name: "section add",
			raw:  &types.RawIntent{Operation: "add", Action: "add_section", Target: "Conclusion", TargetType: "section", Position: "end", Confidence: 0.9},
			want: types.OpAdd,
		},
		{
			name: "section modify",
			raw:  &types.RawIntent{Operation: "modify", Action: "modify_section", Target: "Introduction", TargetType: "section", SectionName: "Introduction", Confidence: 0.85},
			want: types.OpModify,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustValidate(t, tt.raw)
			if out.Operation != tt.want {
				t.Errorf("operation = %s, want %s", out.Operation, tt.want)
			}
			if out.Confidence != tt.raw.Confidence {
				t.Errorf("confidence changed without coercion: %v -> %v", tt.raw.Confidence, out.Confidence)
			}
		})
	}
}

func TestValidate_RejectsOperationActionMismatch(t *testing.T) {
	// a format-family action under a remove operation never reaches an applicator
	wantInvalid(t, &types.RawIntent{
		Operation:  "remove",
		Action:     "highlight_word",
		Target:     "FluentNet",
		TargetType: "word",
		Confidence: 0.9,
	}, "action")
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		raw   *types.RawIntent
		field string
	}{
		{
			name:  "unknown operation",
			raw:   &types.RawIntent{Operation: "transmogrify", Action: "remove_word", Target: "x"},
			field: "operation",
		},
		{
			name:  "unknown action",
			raw:   &types.RawIntent{Operation: "remove", Action: "remove_everything", Target: "x"},
			field: "action",
		},
		{
			name:  "unsupported target type",
			raw:   &types.RawIntent{Operation: "format", Action: "bold_text", Target: "x", TargetType: "table"},
			field: "target_type",
		},
		{
			name:  "missing target",
			raw:   &types.RawIntent{Operation: "remove", Action: "remove_word", TargetType: "word"},
			field: "target",
		},
		{
			name:  "all illegal for single word replace",
			raw:   &types.RawIntent{Operation: "replace", Action: "replace_word", Target: "all", NewText: "x", TargetType: "word"},
			field: "target",
		},
		{
			name:  "replace without replacement",
			raw:   &types.RawIntent{Operation: "replace", Action: "replace_word", Target: "AI", TargetType: "word"},
			field: "new_text",
		},
		{
			name:  "color outside palette",
			raw:   &types.RawIntent{Operation: "format", Action: "highlight_word", Target: "x", TargetType: "word", FormatAction: "highlight", Color: "chartreuse"},
			field: "color",
		},
		{
			name:  "unknown position",
			raw:   &types.RawIntent{Operation: "add", Action: "add_section", Target: "Conclusion", TargetType: "section", Position: "sideways"},
			field: "position",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantInvalid(t, tt.raw, tt.field)
		})
	}
}

func TestValidate_Coercions(t *testing.T) {
	t.Run("missing target type comes from action", func(t *testing.T) {
		out := mustValidate(t, &types.RawIntent{
			Operation:  "remove",
			Action:     "remove_table",
			Target:     "all",
			Confidence: 0.8,
		})
		if out.TargetType != types.TargetTable {
			t.Errorf("target_type = %s, want table", out.TargetType)
		}
		if out.Confidence != 0.4 {
			t.Errorf("confidence = %v, want halved 0.4", out.Confidence)
		}
	})

	t.Run("missing color defaults to yellow", func(t *testing.T) {
		out := mustValidate(t, &types.RawIntent{
			Operation:    "format",
			Action:       "highlight_word",
			Target:       "FluentNet",
			TargetType:   "word",
			FormatAction: "highlight",
			Confidence:   0.8,
		})
		if out.Color != types.DefaultColor {
			t.Errorf("color = %s, want %s", out.Color, types.DefaultColor)
		}
		if out.Confidence != 0.4 {
			t.Errorf("confidence = %v, want halved 0.4", out.Confidence)
		}
	})

	t.Run("missing position defaults to end", func(t *testing.T) {
		out := mustValidate(t, &types.RawIntent{
			Operation:  "add",
			Action:     "add_section",
			Target:     "Conclusion",
			TargetType: "section",
			Confidence: 0.8,
		})
		if out.Position != types.PosEnd {
			t.Errorf("position = %s, want end", out.Position)
		}
	})

	t.Run("missing action rebuilt from operation", func(t *testing.T) {
		out := mustValidate(t, &types.RawIntent{
			Operation:  "remove",
			Target:     "all",
			TargetType: "equation",
			Confidence: 0.8,
		})
		if out.Action != "remove_equation" {
			t.Errorf("action = %s, want remove_equation", out.Action)
		}
	})

	t.Run("section name taken from target", func(t *testing.T) {
		out := mustValidate(t, &types.RawIntent{
			Operation:  "remove",
			Action:     "remove_section",
			Target:     "Related Works",
			TargetType: "section",
			Confidence: 0.9,
		})
		if out.SectionName != "Related Works" {
			t.Errorf("section_name = %s, want Related Works", out.SectionName)
		}
	})

	t.Run("format action recovered from tag", func(t *testing.T) {
		out := mustValidate(t, &types.RawIntent{
			Operation:  "format",
			Action:     "bold_text",
			Target:     "Methods",
			TargetType: "word",
			Confidence: 0.8,
		})
		if out.FormatAction != types.FormatBold {
			t.Errorf("format_action = %s, want bold", out.FormatAction)
		}
	})

	t.Run("confidence floor holds", func(t *testing.T) {
		out := mustValidate(t, &types.RawIntent{
			Operation:    "format",
			Target:       "x",
			FormatAction: "highlight",
			Confidence:   0.1,
		})
		// action, target type and color all coerced
		if out.Confidence != confidenceFloor {
			t.Errorf("confidence = %v, want floor %v", out.Confidence, confidenceFloor)
		}
	})
}

func TestValidate_ConfidenceClamped(t *testing.T) {
	out := mustValidate(t, &types.RawIntent{
		Operation:  "remove",
		Action:     "remove_word",
		Target:     "filler",
		TargetType: "word",
		Confidence: 3.7,
	})
	if out.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", out.Confidence)
	}
}
