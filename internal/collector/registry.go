package collector

import (
	"github.com/hitoshi/thermoculture/internal/model"
)

// Registry はソース種別に応じたコレクターの選択を提供する。
type Registry struct {
	newsAPI *NewsAPICollector
	scrape  *ScrapeCollector
	rss     *RSSCollector
}

// NewRegistry はRegistryを生成する。
func NewRegistry(newsAPI *NewsAPICollector, scrape *ScrapeCollector, rss *RSSCollector) *Registry {
	return &Registry{
		newsAPI: newsAPI,
		scrape:  scrape,
		rss:     rss,
	}
}

// ForSource はソース種別に対応するコレクターを返す。
// 収集未対応の種別（reddit、forum、social_media、manual）はエラーを返す。
func (r *Registry) ForSource(source *model.Source) (Collector, error) {
	switch source.Type {
	case model.SourceTypeNewsAPI:
		return r.newsAPI, nil
	case model.SourceTypeNewsScrape:
		return r.scrape, nil
	case model.SourceTypeNewsRSS:
		return r.rss, nil
	default:
		return nil, model.NewCollectorUnsupportedError(source.Type)
	}
}
