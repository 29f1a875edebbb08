// Package recaptcha проверяет токены reCAPTCHA, переданные при регистрации,
// и помечает аккаунты с низкой оценкой.
package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result ответ сервиса проверки.
type Result struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Client выполняет один POST к сервису проверки на каждый токен.
type Client struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
}

// NewClient создаёт Client с ограничением времени на запрос.
func NewClient(secret, verifyURL string, timeout time.Duration) *Client {
	return &Client{
		secret:     secret,
		verifyURL:  verifyURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Verify отправляет secret и response формой и разбирает JSON-ответ.
func (c *Client) Verify(ctx context.Context, token string) (*Result, error) {
	const op = "recaptcha.Verify"

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}
	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return &result, nil
}
