package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

func siteverify(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "shh", r.PostForm.Get("secret"))
		require.Equal(t, "10.0.0.1", r.PostForm.Get("remoteip"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerify_Disabled(t *testing.T) {
	v := NewVerifier(Config{}, zerolog.Nop())
	require.NoError(t, v.Verify(context.Background(), "", ""))
}

func TestVerify_Misconfigured(t *testing.T) {
	v := NewVerifier(Config{Enabled: true}, zerolog.Nop())
	require.ErrorIs(t, v.Verify(context.Background(), "tok", ""), domain.ErrCaptchaMisconfigured)
}

func TestVerify_MissingToken(t *testing.T) {
	v := NewVerifier(Config{Enabled: true, Secret: "shh"}, zerolog.Nop())
	require.ErrorIs(t, v.Verify(context.Background(), " ", ""), domain.ErrCaptchaRequired)
}

func TestVerify_Responses(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		want   error
	}{
		{"success", `{"success":true,"score":0.9}`, http.StatusOK, nil},
		{"success without score", `{"success":true}`, http.StatusOK, nil},
		{"rejected", `{"success":false,"error-codes":["invalid-input-response"]}`, http.StatusOK, domain.ErrCaptchaFailed},
		{"low score", `{"success":true,"score":0.1}`, http.StatusOK, domain.ErrCaptchaFailed},
		{"upstream error", `oops`, http.StatusBadGateway, domain.ErrCaptchaUnavailable},
		{"bad json", `{`, http.StatusOK, domain.ErrCaptchaUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := siteverify(t, tc.body, tc.status)
			v := NewVerifier(Config{Enabled: true, Secret: "shh", Endpoint: srv.URL}, zerolog.Nop())

			err := v.Verify(context.Background(), "tok", "10.0.0.1")
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVerify_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	v := NewVerifier(Config{Enabled: true, Secret: "shh", Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, zerolog.Nop())

	start := time.Now()
	err := v.Verify(context.Background(), "tok", "")
	require.ErrorIs(t, err, domain.ErrCaptchaUnavailable)
	require.Less(t, time.Since(start), time.Second)
}
