package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Wenbobobo/Solease/crypto"
)

func callerEcho(t *testing.T, want crypto.Address) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, want, caller)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticatorAcceptsSubjectAddress(t *testing.T) {
	var caller crypto.Address
	caller[0] = 9
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "s3cret", Issuer: "solease", Audience: "creditd"}, nil)
	token, err := IssueToken("s3cret", "solease", "creditd", caller, []string{"credit"}, time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/credit/repay", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	auth.Middleware("credit")(callerEcho(t, caller)).ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	auth.Middleware("admin")(callerEcho(t, caller)).ServeHTTP(res, req)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestAuthenticatorRejectsBadTokens(t *testing.T) {
	var caller crypto.Address
	caller[0] = 9
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "s3cret", Issuer: "solease"}, nil)

	wrongSecret, err := IssueToken("other", "solease", "", caller, nil, time.Hour, time.Now())
	require.NoError(t, err)
	expired, err := IssueToken("s3cret", "solease", "", caller, nil, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	wrongIssuer, err := IssueToken("s3cret", "elsewhere", "", caller, nil, time.Hour, time.Now())
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong secret": "Bearer " + wrongSecret,
		"expired":      "Bearer " + expired,
		"wrong issuer": "Bearer " + wrongIssuer,
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/credit/pool", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		res := httptest.NewRecorder()
		auth.Middleware()(okHandler()).ServeHTTP(res, req)
		require.Equal(t, http.StatusUnauthorized, res.Code, name)
	}
}

func TestAuthenticatorDevModeReadsCallerHeader(t *testing.T) {
	var caller crypto.Address
	caller[0] = 3
	auth := NewAuthenticator(AuthConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/credit/deposit", nil)
	req.Header.Set("X-Caller", caller.String())
	res := httptest.NewRecorder()
	auth.Middleware("admin")(callerEcho(t, caller)).ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	auth.Middleware()(okHandler()).ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/credit/deposit", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequestIDAssignsAndPropagates(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, res.Header().Get(RequestIDHeader))

	inbound := "0b5c7f9e-3f4e-4d36-9a51-2f0a1c1b9d11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, inbound, seen)
}
