// Package client holds the access token for a single authenticated session
// and keeps it fresh by calling the refresh endpoint before it expires. The
// refresh token itself is never held here: it lives only in the HTTP
// client's cookie jar, the way a browser keeps it in an HttpOnly cookie.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMargin is how long before access token expiry the next
	// refresh fires.
	DefaultMargin = 60 * time.Second
	// DefaultMinDelay guards against pathologically short token lifetimes
	// arming an immediate (or past) refresh.
	DefaultMinDelay = 5 * time.Second
)

var (
	ErrLoginFailed   = errors.New("login failed")
	ErrRefreshFailed = errors.New("refresh failed")
)

// WakeSource delivers wake-up events such as a tab becoming visible or a
// window regaining focus. Subscribe registers a callback and returns a
// cancel func that unregisters it.
type WakeSource interface {
	Subscribe(fn func()) (cancel func())
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Manager schedules proactive access token renewal. It owns at most one
// pending timer: every successful refresh re-arms it, and re-arming stops
// whatever was pending before, so renewals never pile up.
type Manager struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	margin     time.Duration
	minDelay   time.Duration

	refreshMu sync.Mutex // serializes refresh calls; at most one in flight

	mu    sync.Mutex
	token string
	timer *time.Timer
}

// NewManager builds a Manager against baseURL (the API root, e.g.
// "https://host/api"). A nil httpClient gets a fresh one; a client without a
// cookie jar gets one, since the refresh cookie has to live somewhere.
// Non-positive margin or minDelay fall back to the defaults.
func NewManager(baseURL string, httpClient *http.Client, logger *zap.Logger, margin, minDelay time.Duration) (*Manager, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}
	if margin <= 0 {
		margin = DefaultMargin
	}
	if minDelay <= 0 {
		minDelay = DefaultMinDelay
	}
	return &Manager{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		margin:     margin,
		minDelay:   minDelay,
	}, nil
}

// AccessToken returns the current access token, or "" when logged out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Login authenticates, stores the returned access token and arms the
// renewal timer. The refresh cookie lands in the client's jar.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return err
	}
	m.store(tr.AccessToken)
	m.arm(tr.ExpiresIn)
	return nil
}

// RefreshNow exchanges the refresh cookie for a new access token and
// re-arms the timer from the returned lifetime. Any failure clears local
// state and disarms the timer: the session is treated as logged out, with
// no retry loop. The next wake-up trigger or an explicit Login starts over.
func (m *Manager) RefreshNow(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/refresh", nil)
	if err != nil {
		m.clear()
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.clear()
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		m.clear()
		return "", fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		m.clear()
		return "", err
	}
	m.store(tr.AccessToken)
	m.arm(tr.ExpiresIn)
	return tr.AccessToken, nil
}

// Logout revokes the session server-side and clears local state. The local
// clear happens even when the request fails.
func (m *Manager) Logout(ctx context.Context) error {
	defer m.clear()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/logout", nil)
	if err != nil {
		return err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// Attach wires wake-up sources to an immediate refresh, covering timers
// that were suspended while the session slept. The returned detach func
// unsubscribes from every source.
func (m *Manager) Attach(sources ...WakeSource) (detach func()) {
	cancels := make([]func(), 0, len(sources))
	for _, src := range sources {
		cancels = append(cancels, src.Subscribe(func() {
			if _, err := m.RefreshNow(context.Background()); err != nil && m.logger != nil {
				m.logger.Warn("wake-up refresh failed", zap.Error(err))
			}
		}))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// Close disarms the timer and drops the token.
func (m *Manager) Close() {
	m.clear()
}

func (m *Manager) store(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

func (m *Manager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// arm schedules the next renewal, stopping any previously pending timer so
// that exactly one is ever outstanding.
func (m *Manager) arm(expiresIn int) {
	delay := nextDelay(expiresIn, m.margin, m.minDelay)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(delay, func() {
		if _, err := m.RefreshNow(context.Background()); err != nil && m.logger != nil {
			m.logger.Warn("scheduled refresh failed", zap.Error(err))
		}
	})
}

func nextDelay(expiresIn int, margin, minDelay time.Duration) time.Duration {
	delay := time.Duration(expiresIn)*time.Second - margin
	if delay < minDelay {
		delay = minDelay
	}
	return delay
}
