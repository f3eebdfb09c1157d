package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsGate はrobots.txtに基づくアクセス可否の判定を行う。
// ホストごとにrobots.txtを1回だけ取得してキャッシュする。
// robots.txtが取得できない場合はフェイルオープン（許可）とし、警告を記録する。
type RobotsGate struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.Group
}

// NewRobotsGate はRobotsGateを生成する。
func NewRobotsGate(client *http.Client, userAgent string, logger *slog.Logger) *RobotsGate {
	return &RobotsGate{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]*robotstxt.Group),
	}
}

// Allowed は指定URLへのアクセスがrobots.txtで許可されているかを返す。
func (g *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	group := g.groupFor(ctx, parsed)
	if group == nil {
		// robots.txt不明時はフェイルオープン
		return true
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	return group.Test(path)
}

func (g *RobotsGate) groupFor(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	defer g.mu.Unlock()

	if group, ok := g.cache[key]; ok {
		return group
	}

	group := g.fetchGroup(ctx, key)
	g.cache[key] = group
	return group
}

// fetchGroup はrobots.txtを取得してUser-Agent用のグループを返す。
// ネットワークエラー時はnil（フェイルオープン）を返す。
func (g *RobotsGate) fetchGroup(ctx context.Context, base string) *robotstxt.Group {
	robotsURL := fmt.Sprintf("%s/robots.txt", base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		g.logger.Warn("robots.txtリクエストの作成に失敗、許可として扱います",
			slog.String("url", robotsURL),
			slog.String("error", err.Error()),
		)
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("robots.txtの取得に失敗、許可として扱います",
			slog.String("url", robotsURL),
			slog.String("error", err.Error()),
		)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		g.logger.Warn("robots.txtのパースに失敗、許可として扱います",
			slog.String("url", robotsURL),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return data.FindGroup(g.userAgent)
}
