package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/core/port"
	"github.com/gridtie/mqtt2soyo/internal/core/service"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// HTTPFeedSource polls an emonCMS style JSON feed (feed/get.json) whose body is
// a single number, or a number encoded as a string.
type HTTPFeedSource struct {
	client  *http.Client
	url     string
	timeout time.Duration
	logger  *zap.Logger
}

func NewHTTPFeedSource(url string, timeout time.Duration, logger *zap.Logger) *HTTPFeedSource {
	return &HTTPFeedSource{
		client:  &http.Client{Timeout: timeout},
		url:     url,
		timeout: timeout,
		logger:  logger.With(zap.String("source", "http")),
	}
}

func (s *HTTPFeedSource) ReadPower(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = s.timeout / 2
	bo.MaxElapsedTime = s.timeout

	return backoff.RetryNotifyWithData(func() (int, error) {
		return s.fetch(ctx)
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		s.logger.Debug("feed fetch failed, retrying", zap.Error(err), zap.Duration("in", next))
	})
}

func (s *HTTPFeedSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *HTTPFeedSource) fetch(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("feed http %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return 0, backoff.Permanent(err)
		}
		return 0, err
	}
	value, err := parseFeedValue(body)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	return value, nil
}

func parseFeedValue(body []byte) (int, error) {
	var str string
	if err := json.Unmarshal(body, &str); err == nil {
		return service.ParseSignal([]byte(str))
	}
	var num json.Number
	if err := json.Unmarshal(body, &num); err != nil {
		return 0, fmt.Errorf("%w: %q", service.ErrInvalidPayload, string(body))
	}
	return service.ParseSignal([]byte(num.String()))
}

// ensure interface compliance
var _ port.TelemetrySource = (*HTTPFeedSource)(nil)
