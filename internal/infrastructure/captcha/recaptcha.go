// Package captcha verifies reCAPTCHA v3 tokens against Google's siteverify
// endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
)

const (
	DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"
	defaultTimeout  = 3 * time.Second
	defaultMinScore = 0.5
)

// Config controls captcha verification. With Enabled false every token is
// accepted.
type Config struct {
	Enabled  bool
	Secret   string
	MinScore float64
	Timeout  time.Duration
	Endpoint string
	// RatePerSecond caps outbound verification calls; zero means 20/s.
	RatePerSecond float64
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verifier implements ports.CaptchaVerifier.
type Verifier struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

var _ ports.CaptchaVerifier = (*Verifier)(nil)

func NewVerifier(cfg Config, log zerolog.Logger) *Verifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = defaultMinScore
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 20
	}
	return &Verifier{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		log:     log.With().Str("component", "captcha").Logger(),
	}
}

// Verify checks token. The whole call, including waiting for the outbound
// limiter, is bounded by the configured timeout.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if !v.cfg.Enabled {
		return nil
	}
	if v.cfg.Secret == "" {
		v.log.Warn().Msg("captcha enabled but no secret configured")
		return domain.ErrCaptchaMisconfigured
	}
	if strings.TrimSpace(token) == "" {
		return domain.ErrCaptchaRequired
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	if err := v.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCaptchaUnavailable, err)
	}

	res, err := v.siteverify(ctx, token, remoteIP)
	if err != nil {
		v.log.Error().Err(err).Msg("captcha verification request failed")
		return fmt.Errorf("%w: %v", domain.ErrCaptchaUnavailable, err)
	}

	if !res.Success {
		v.log.Warn().Strs("error_codes", res.ErrorCodes).Msg("captcha verification failed")
		return domain.ErrCaptchaFailed
	}
	if res.Score != nil && *res.Score < v.cfg.MinScore {
		v.log.Warn().Float64("score", *res.Score).Float64("min_score", v.cfg.MinScore).Msg("captcha score below threshold")
		return fmt.Errorf("%w: score too low", domain.ErrCaptchaFailed)
	}
	return nil
}

func (v *Verifier) siteverify(ctx context.Context, token, remoteIP string) (*siteverifyResponse, error) {
	form := url.Values{"secret": {v.cfg.Secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("siteverify status: %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
