// Package types defines core data types and enums for the LaTeX editor application.
package types

// Config 应用配置
type Config struct {
	APIKeys            []string `json:"api_keys"`             // 备用 API Key 列表，按槽位轮换
	BaseURL            string   `json:"base_url"`             // OpenAI 兼容 API 的 Base URL
	Model              string   `json:"model"`
	RequestTimeout     int      `json:"request_timeout"`      // 单次分类请求超时（秒），默认 30
	KeyCooldown        int      `json:"key_cooldown"`         // 限流 Key 冷却时间（秒），默认 60
	FallbackConfidence float64  `json:"fallback_confidence"`  // 关键词回退解析的最低置信度阈值，默认 0.4
}

// Operation 编辑操作类别枚举
type Operation string

const (
	OpRemove  Operation = "remove"
	OpReplace Operation = "replace"
	OpAdd     Operation = "add"
	OpFormat  Operation = "format"
	OpModify  Operation = "modify"
)

// Operations returns the closed set of valid operations.
func Operations() []Operation {
	return []Operation{OpRemove, OpReplace, OpAdd, OpFormat, OpModify}
}

// TargetType 编辑目标的结构单元枚举
type TargetType string

const (
	TargetWord      TargetType = "word"
	TargetPhrase    TargetType = "phrase"
	TargetSentence  TargetType = "sentence"
	TargetParagraph TargetType = "paragraph"
	TargetSection   TargetType = "section"
	TargetTable     TargetType = "table"
	TargetEquation  TargetType = "equation"
	TargetContent   TargetType = "content"
)

// TargetTypes returns the closed set of valid target types.
func TargetTypes() []TargetType {
	return []TargetType{
		TargetWord, TargetPhrase, TargetSentence, TargetParagraph,
		TargetSection, TargetTable, TargetEquation, TargetContent,
	}
}

// Position 添加操作的插入位置枚举
type Position string

const (
	PosBefore    Position = "before"
	PosAfter     Position = "after"
	PosBeginning Position = "beginning"
	PosEnd       Position = "end"
)

// FormatAction 格式化操作的样式动词枚举
type FormatAction string

const (
	FormatHighlight FormatAction = "highlight"
	FormatBold      FormatAction = "bold"
	FormatItalic    FormatAction = "italic"
	FormatUnderline FormatAction = "underline"
)

// TargetAll is the sentinel target meaning every match in the document.
const TargetAll = "all"

// DefaultColor is used when a highlight request names no color.
const DefaultColor = "yellow"

// Palette is the fixed set of highlight colors accepted by format operations.
var Palette = []string{"yellow", "red", "green", "blue", "cyan", "magenta", "orange", "pink"}

// IsPaletteColor reports whether color is one of the accepted highlight colors.
func IsPaletteColor(color string) bool {
	for _, c := range Palette {
		if c == color {
			return true
		}
	}
	return false
}

// RawIntent 分类器的原始输出
//
// Parsed straight from the model's JSON response, or synthesized by the
// keyword fallback. Untrusted: nothing downstream of the intent validator
// ever sees a RawIntent.
type RawIntent struct {
	Operation    string  `json:"operation"`
	Action       string  `json:"action"`
	Target       string  `json:"target"`
	NewText      string  `json:"new_text"`
	TargetType   string  `json:"target_type"`
	FormatAction string  `json:"format_action"`
	Color        string  `json:"color"`
	SectionName  string  `json:"section_name"`
	Position     string  `json:"position"`
	Confidence   float64 `json:"confidence"`
}

// EditIntent 校验后的编辑意图
//
// Only the intent validator produces these; applicators may assume every
// field is consistent with the closed vocabulary.
type EditIntent struct {
	Operation    Operation    `json:"operation"`
	Action       string       `json:"action"`
	Target       string       `json:"target"`
	NewText      string       `json:"new_text,omitempty"`
	TargetType   TargetType   `json:"target_type"`
	FormatAction FormatAction `json:"format_action,omitempty"`
	Color        string       `json:"color,omitempty"`
	SectionName  string       `json:"section_name,omitempty"`
	Position     Position     `json:"position,omitempty"`
	Confidence   float64      `json:"confidence"`
}

// TargetsAll reports whether the intent addresses every match in the document.
func (i *EditIntent) TargetsAll() bool {
	return i.Target == TargetAll
}

// FailureReason 编辑失败原因枚举
type FailureReason string

const (
	FailUnparseableIntent FailureReason = "unparseable_intent"
	FailInvalidIntent     FailureReason = "invalid_intent"
	FailApply             FailureReason = "apply_error"
	FailGeneration        FailureReason = "generation_error"
)

// EditResult 单次编辑结果
type EditResult struct {
	Success    bool          `json:"success"`
	Operation  Operation     `json:"operation,omitempty"`
	Action     string        `json:"action,omitempty"`
	Changes    int           `json:"changes"`
	ResultText string        `json:"result_text"`
	Intent     *EditIntent   `json:"intent,omitempty"`
	Reason     FailureReason `json:"reason,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// ErrorCode 错误代码枚举
type ErrorCode string

const (
	ErrClassifier        ErrorCode = "CLASSIFIER_ERROR"
	ErrAPIRateLimit      ErrorCode = "API_RATE_LIMIT"
	ErrAllSlotsExhausted ErrorCode = "ALL_SLOTS_EXHAUSTED"
	ErrUnparseableIntent ErrorCode = "UNPARSEABLE_INTENT"
	ErrInvalidIntent     ErrorCode = "INVALID_INTENT"
	ErrApply             ErrorCode = "APPLY_ERROR"
	ErrGeneration        ErrorCode = "GENERATION_ERROR"
	ErrConfig            ErrorCode = "CONFIG_ERROR"
	ErrInternal          ErrorCode = "INTERNAL_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}
