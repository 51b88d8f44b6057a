package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/observability/logging"
)

// AuthConfig controls bearer token verification. The token subject is the
// base58 address of the caller; every credit operation is executed as that
// identity.
type AuthConfig struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	Audience   string
	ScopeClaim string
	ClockSkew  time.Duration
}

type contextKey string

const (
	ContextKeyCaller contextKey = "creditd.caller"
	ContextKeyScopes contextKey = "creditd.scopes"
)

var (
	errSecretMissing  = errors.New("auth secret not configured")
	errSubjectMissing = errors.New("token subject missing")
)

type Authenticator struct {
	cfg    AuthConfig
	logger *slog.Logger
	secret []byte
}

func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScopeClaim == "" {
		cfg.ScopeClaim = "scope"
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		logger: logger,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
	}
}

// Middleware authenticates the caller and enforces requiredScopes. With
// authentication disabled the caller is read from the X-Caller header, which
// is only meant for local development.
func (a *Authenticator) Middleware(requiredScopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.cfg.Enabled {
				caller, err := crypto.DecodeAddress(strings.TrimSpace(r.Header.Get("X-Caller")))
				if err != nil {
					http.Error(w, "missing caller", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller, requiredScopes)))
				return
			}
			tokenString := extractBearer(r.Header.Get("Authorization"))
			if tokenString == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := a.parseToken(tokenString)
			if err != nil {
				a.logger.Warn("auth: token validation failed",
					logging.MaskField("authorization", tokenString),
					slog.Any("error", err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			caller, err := subjectAddress(claims)
			if err != nil {
				a.logger.Warn("auth: subject rejected", slog.Any("error", err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			scopes := extractScopes(claims, a.cfg.ScopeClaim)
			if !hasScopes(scopes, requiredScopes) {
				http.Error(w, "insufficient scope", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller, scopes)))
		})
	}
}

// WithCaller stores the authenticated identity on ctx.
func WithCaller(ctx context.Context, caller crypto.Address, scopes []string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyCaller, caller)
	return context.WithValue(ctx, ContextKeyScopes, scopes)
}

// CallerFromContext returns the identity stored by the authenticator.
func CallerFromContext(ctx context.Context) (crypto.Address, bool) {
	caller, ok := ctx.Value(ContextKeyCaller).(crypto.Address)
	return caller, ok && !caller.IsZero()
}

func (a *Authenticator) parseToken(tokenString string) (jwt.MapClaims, error) {
	if len(a.secret) == 0 {
		return nil, errSecretMissing
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims not map")
	}
	return claims, nil
}

func subjectAddress(claims jwt.MapClaims) (crypto.Address, error) {
	subject, err := claims.GetSubject()
	if err != nil {
		return crypto.Address{}, err
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return crypto.Address{}, errSubjectMissing
	}
	return crypto.DecodeAddress(subject)
}

// IssueToken signs an HS256 token for subject. It backs the operator CLI and
// tests; production deployments mint tokens elsewhere with the same secret.
func IssueToken(secret, issuer, audience string, subject crypto.Address, scopes []string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errSecretMissing
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	claims := jwt.MapClaims{
		"sub": subject.String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	if audience != "" {
		claims["aud"] = audience
	}
	if len(scopes) > 0 {
		claims["scope"] = strings.Join(scopes, " ")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}

func extractScopes(claims jwt.MapClaims, scopeClaim string) []string {
	if scopeClaim == "" {
		scopeClaim = "scope"
	}
	raw, ok := claims[scopeClaim]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return strings.Fields(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func hasScopes(scopes []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		set[scope] = struct{}{}
	}
	for _, req := range required {
		if _, ok := set[req]; !ok {
			return false
		}
	}
	return true
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
