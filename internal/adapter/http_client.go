package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/apexmarkets/settingsync/models"
)

// HTTPConfig configures the resty-based settings backend client.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

type httpBackend struct {
	client *resty.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPBackend constructs a SettingsBackend talking REST to the Apex
// settings service.
func NewHTTPBackend(cfg HTTPConfig) SettingsBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpBackend{client: cli}
}

func (h *httpBackend) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpBackend) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpBackend) UserID() (int64, error) {
	token := h.Token()
	if token == "" {
		return 0, errors.New("no bearer token set")
	}
	return parseUserIDFromJWT(token)
}

func (h *httpBackend) Fetch(ctx context.Context) (models.SettingsSnapshot, error) {
	resp, err := h.authedRequest(ctx).Get("/api/settings")
	if err != nil {
		return nil, fmt.Errorf("fetch settings request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var sr models.SettingsResponse
	if err = json.Unmarshal(resp.Body(), &sr); err != nil {
		return nil, fmt.Errorf("decode settings response: %w", err)
	}
	return sr.Settings, nil
}

func (h *httpBackend) Push(ctx context.Context, settingType models.SettingType, key string, req models.PushRequest) (models.PushResult, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Put("/api/settings/" + url.PathEscape(string(settingType)) + "/" + url.PathEscape(key))
	if err != nil {
		return models.PushResult{}, fmt.Errorf("push setting request: %w", err)
	}

	// 409 carries the conflict payload; it is data, not an error.
	if resp.StatusCode() != http.StatusConflict {
		if err = mapHTTPError(resp); err != nil {
			return models.PushResult{}, err
		}
	}

	var result models.PushResult
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return models.PushResult{}, fmt.Errorf("decode push response: %w", err)
	}
	if resp.StatusCode() == http.StatusConflict {
		result.Conflict = true
	}
	return result, nil
}

func (h *httpBackend) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
}

// IsNetworkError reports whether err looks like a connectivity failure
// rather than a server-side rejection. The engine uses it to downgrade
// SyncStatus.Online after consecutive failures.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func parseUserIDFromJWT(tokenString string) (int64, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, err
	}
	return id, nil
}
