package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/logger"
	"market-sync/src/models"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 512

type AsyncNetworkManager struct {
	Config  *models.MConfig
	Client  *http.Client
	Logger  *logger.Logger
	backoff time.Duration
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	nm := &AsyncNetworkManager{
		Config:  cfg,
		Logger:  log,
		backoff: time.Second,
	}
	nm.Client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.Config.Network.Proxy != "" {
		proxyURL, err := url.Parse(nm.Config.Network.Proxy)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			nm.Logger.Warning("Ignoring invalid proxy %q: %v", nm.Config.Network.Proxy, err)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request. Transport failures and 5xx responses are retried
// up to Network.MaxRetries times; 4xx responses are returned immediately.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", urlStr, err)
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqUrl.RawQuery = q.Encode()
	finalUrl := reqUrl.String()

	maxRetries := nm.Config.Network.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, helpers.NewNetworkError("request cancelled", ctx.Err())
			case <-time.After(time.Duration(i*i) * nm.backoff):
			}
		}

		body, retry, err := nm.do(ctx, finalUrl)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
		nm.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
	}

	return nil, lastErr
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(ctx context.Context, finalUrl string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalUrl, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	if ua := nm.Config.Network.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, helpers.NewNetworkError(fmt.Sprintf("GET %s", req.URL.Path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, helpers.NewNetworkError("read response body", err)
		}
		return body, false, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fmt.Sprintf("GET %s: status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, helpers.NewNotFoundError(msg, nil)
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(string(snippet), "Invalid symbol"):
		return nil, false, helpers.NewNotFoundError(msg, nil)
	case resp.StatusCode >= 500:
		return nil, true, helpers.NewServerError(msg, resp.StatusCode, nil)
	default:
		return nil, false, helpers.NewServerError(msg, resp.StatusCode, nil)
	}
}
