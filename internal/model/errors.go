// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, source, collection, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeSourceNotFound       = "SOURCE_NOT_FOUND"
	ErrCodeSourceInactive       = "SOURCE_INACTIVE"
	ErrCodeInvalidSourceType    = "INVALID_SOURCE_TYPE"
	ErrCodeJobNotFound          = "JOB_NOT_FOUND"
	ErrCodeSampleNotFound       = "SAMPLE_NOT_FOUND"
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeSSRFBlocked          = "SSRF_BLOCKED"
	ErrCodeValidation           = "VALIDATION_FAILED"
	ErrCodeDuplicateSample      = "DUPLICATE_SAMPLE"
	ErrCodeCollectorUnsupported = "COLLECTOR_UNSUPPORTED"
)

// NewSourceNotFoundError はソース未検出エラーを生成する。
func NewSourceNotFoundError(sourceID string) *APIError {
	return &APIError{
		Code:     ErrCodeSourceNotFound,
		Message:  fmt.Sprintf("指定されたソースが見つかりません: %s", sourceID),
		Category: "source",
		Action:   "ソースIDを確認してください。",
	}
}

// NewSourceInactiveError は停止中ソースへの収集要求エラーを生成する。
func NewSourceInactiveError(sourceID string) *APIError {
	return &APIError{
		Code:     ErrCodeSourceInactive,
		Message:  fmt.Sprintf("ソースは停止中のため収集できません: %s", sourceID),
		Category: "source",
		Action:   "ソースを有効化してから収集を開始してください。",
	}
}

// NewInvalidSourceTypeError は無効なソース種別エラーを生成する。
func NewInvalidSourceTypeError(t string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSourceType,
		Message:  fmt.Sprintf("無効なソース種別です: %s", t),
		Category: "validation",
		Action:   "news_api、news_scrape、news_rss、manual のいずれかを指定してください。",
	}
}

// NewJobNotFoundError はジョブ未検出エラーを生成する。
func NewJobNotFoundError(jobID string) *APIError {
	return &APIError{
		Code:     ErrCodeJobNotFound,
		Message:  fmt.Sprintf("指定された収集ジョブが見つかりません: %s", jobID),
		Category: "collection",
		Action:   "ジョブIDを確認してください。",
	}
}

// NewSampleNotFoundError はサンプル未検出エラーを生成する。
func NewSampleNotFoundError(sampleID string) *APIError {
	return &APIError{
		Code:     ErrCodeSampleNotFound,
		Message:  fmt.Sprintf("指定されたサンプルが見つかりません: %s", sampleID),
		Category: "collection",
		Action:   "サンプルIDを確認してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewDuplicateSampleError は重複サンプルエラーを生成する。
func NewDuplicateSampleError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSample,
		Message:  "同一内容のサンプルが既に登録されています。",
		Category: "collection",
		Action:   "既存のサンプルを確認してください。",
	}
}

// NewCollectorUnsupportedError は未対応のソース種別に対する収集要求エラーを生成する。
func NewCollectorUnsupportedError(t SourceType) *APIError {
	return &APIError{
		Code:     ErrCodeCollectorUnsupported,
		Message:  fmt.Sprintf("このソース種別の収集は未対応です: %s", t),
		Category: "collection",
		Action:   "news_api、news_scrape、news_rss のソースに対して収集を実行してください。",
	}
}
