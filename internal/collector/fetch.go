package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxAttempts429 は429応答に対する最大試行回数（初回を含む）。
	maxAttempts429 = 3
	// maxBodySize は読み取るレスポンスボディの上限バイト数。
	maxBodySize = 5 * 1024 * 1024
)

// RetryBackoff は429応答後のn回目（0始まり）のリトライ待機時間を返す。
// 2秒から始まり倍々に伸びる（2s, 4s, 8s）。
func RetryBackoff(attempt int) time.Duration {
	return 2 * time.Second << attempt
}

// Fetcher はコレクター共通のHTTP取得機能。
// リクエスト間隔の制御（rate.Limiter）、User-Agentの付与、
// 429応答時のバックオフ付きリトライを行う。
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
	backoff   func(int) time.Duration // テスト用に待機時間を差し替え可能
}

// NewFetcher はFetcherを生成する。
// requestIntervalはリクエスト間の最小間隔を指定する。
func NewFetcher(client *http.Client, requestInterval time.Duration, userAgent string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(requestInterval), 1),
		userAgent: userAgent,
		logger:    logger,
		backoff:   RetryBackoff,
	}
}

// Get はURLを取得してボディを返す。
// 429応答の場合はバックオフ付きで最大3回まで試行する。
// 2xx以外のステータスはエラーとして返す。
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	for attempt := 0; attempt < maxAttempts429; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("リクエスト間隔の待機が中断されました: %w", err)
		}

		body, status, err := f.doRequest(ctx, url)
		if err != nil {
			return nil, err
		}

		if status == http.StatusTooManyRequests {
			if attempt == maxAttempts429-1 {
				return nil, fmt.Errorf("レート制限が解消されませんでした（%d回試行）: %s", maxAttempts429, url)
			}
			wait := f.backoff(attempt)
			f.logger.Warn("レート制限応答を受信、待機後にリトライします",
				slog.String("url", url),
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait),
			)
			if err := sleepContext(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("予期しないHTTPステータス %d: %s", status, url)
		}

		return body, nil
	}

	return nil, fmt.Errorf("レート制限が解消されませんでした: %s", url)
}

func (f *Fetcher) doRequest(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTPリクエストの実行に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, 0, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	return body, resp.StatusCode, nil
}

// sleepContext はコンテキストのキャンセルを考慮して待機する。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
