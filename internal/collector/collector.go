// Package collector は外部ソースからの言説サンプル収集機能を提供する。
// ニュース検索API、HTMLスクレイプ、RSSフィードの各コレクターと、
// ソース種別に応じてコレクターを選択するレジストリを含む。
package collector

import (
	"context"
	"fmt"

	"github.com/hitoshi/thermoculture/internal/model"
)

// ClimateKeywords はデフォルトの検索キーワード。
// ソース設定で検索語が指定されない場合に使用する。
var ClimateKeywords = []string{
	"climate change",
	"global warming",
	"net zero",
	"carbon",
	"flooding",
	"heatwave",
	"energy bills",
	"insulation",
}

// Collector は1ソースからの文書収集のインターフェース。
type Collector interface {
	// Collect は検索語に基づいて文書を収集する。
	// 1件も収集できなかった場合は理由コード付きのEmptyResultErrorを返す。
	Collect(ctx context.Context, source *model.Source, terms []string) ([]model.CandidateDocument, error)
}

// EmptyReason は収集結果が空だった理由を表すコード。
type EmptyReason string

const (
	// ReasonComplianceBlocked はrobots.txtによりアクセスが全て拒否された場合。
	ReasonComplianceBlocked EmptyReason = "compliance_blocked"
	// ReasonNoDocuments はアクセスは成功したが抽出できた文書が無かった場合。
	ReasonNoDocuments EmptyReason = "no_documents"
)

// EmptyResultError は収集結果が0件だったことを表すエラー。
// ジョブのerror_messageに理由コードが記録される。
type EmptyResultError struct {
	Reason EmptyReason
	Detail string
}

// Error はerrorインターフェースを実装する。
func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// searchTerms はソース設定の検索語を返す。未設定ならデフォルトを使用する。
func searchTerms(source *model.Source, terms []string) []string {
	if len(terms) > 0 {
		return terms
	}
	if raw, ok := source.Config["search_terms"].([]any); ok {
		var configured []string
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				configured = append(configured, s)
			}
		}
		if len(configured) > 0 {
			return configured
		}
	}
	return ClimateKeywords
}
