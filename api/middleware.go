package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/databases"
)

const (
	// TokenTTL is how long an issued access token stays valid
	TokenTTL   = 24 * time.Hour
	issuer     = "pillapp-api"
	basicCache = 5 * time.Minute
	tokenCache = 10 * time.Minute
)

var errInvalidCredentials = errors.New("invalid credentials")

// Claims are the JWT claims of an access token
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Guard authenticates requests with go-guardian. Basic credentials are
// checked against the stored bcrypt password and bearer tokens are JWTs
// signed with the configured secret.
type Guard struct {
	DB            databases.UserDatabase
	secret        []byte
	authenticator auth.Authenticator
	basic         auth.Strategy
	now           func() time.Time
}

// NewGuard sets up the go-guardian strategies. Both caches expire in the
// background until ctx is done.
func NewGuard(ctx context.Context, conf *config.Config, db databases.UserDatabase) *Guard {
	g := &Guard{
		DB:     db,
		secret: []byte(conf.JWTSecret),
		now:    time.Now,
	}

	g.basic = basic.New(g.ValidateUser, store.NewFIFO(ctx, basicCache))
	tokenStrategy := bearer.New(g.VerifyToken, store.NewFIFO(ctx, tokenCache))

	g.authenticator = auth.New()
	g.authenticator.EnableStrategy(basic.StrategyKey, g.basic)
	g.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
	return g
}

// Enabled reports whether a signing secret is configured
func (g *Guard) Enabled() bool {
	return len(g.secret) > 0
}

// Middleware rejects unauthenticated requests with 401. It lets everything
// through when the guard is not enabled.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		user, err := g.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Infow("unauthorized",
				"url", r.URL.String(),
				"requestId", RequestID(r.Context()))
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
			return
		}
		zap.S().Debugw("user authenticated", "user", user.UserName(), "id", user.ID())

		ctx := WithPrincipal(r.Context(), Principal{ID: user.ID(), Email: user.UserName()})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthenticateBasic checks the basic credentials of r only
func (g *Guard) AuthenticateBasic(r *http.Request) (Principal, error) {
	info, err := g.basic.Authenticate(r.Context(), r)
	if err != nil {
		return Principal{}, err
	}
	return Principal{ID: info.ID(), Email: info.UserName()}, nil
}

// IssueToken signs an access token for p
func (g *Guard) IssueToken(p Principal) (string, time.Time, error) {
	if !g.Enabled() {
		return "", time.Time{}, errors.New("token signing secret is not configured")
	}

	now := g.now()
	expires := now.Add(TokenTTL)
	claims := Claims{
		Email: p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// VerifyToken is the bearer strategy callback
func (g *Guard) VerifyToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return auth.NewDefaultUser(claims.Email, claims.Subject, nil, nil), nil
}

// ValidateUser is the basic strategy callback
func (g *Guard) ValidateUser(ctx context.Context, r *http.Request, email, password string) (auth.Info, error) {
	user, err := g.DB.FindByEmail(ctx, email)
	if err != nil {
		return nil, errInvalidCredentials
	}
	if user.PasswordHash == "" {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return auth.NewDefaultUser(user.Email, user.ID.Hex(), nil, nil), nil
}
