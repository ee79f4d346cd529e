package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/clinic-chat-api/databases"
	"github.com/linesmerrill/clinic-chat-api/models"
)

// DefaultTokenTTL is how long an issued bearer token stays valid
const DefaultTokenTTL = 24 * time.Hour

var errInvalidToken = errors.New("invalid token")

// expiresKey is the auth.Info extension carrying a token's exp as unix seconds
const expiresKey = "exp"

// Claims are the JWT claims issued by CreateToken
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// MiddlewareDB is a struct that holds the database and the signing secret
type MiddlewareDB struct {
	DB       databases.UserDatabase
	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time

	authenticator auth.Authenticator
}

// SetupGoGuardian sets up the go-guardian strategies: basic auth backed by
// the users collection and cached bearer tokens verified as JWTs
func (m *MiddlewareDB) SetupGoGuardian() {
	if m.TokenTTL <= 0 {
		m.TokenTTL = DefaultTokenTTL
	}
	m.authenticator = auth.New()
	basicCache := store.NewFIFO(context.Background(), 10*time.Minute)
	tokenCache := &expiringCache{Cache: store.NewFIFO(context.Background(), m.TokenTTL), now: m.now}
	basicStrategy := basic.New(m.ValidateUser, basicCache)
	tokenStrategy := bearer.New(m.VerifyToken, tokenCache)

	m.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	m.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// Middleware rejects requests that carry no valid credentials
func (m *MiddlewareDB) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := m.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"path", r.URL.Path,
				"error", err)
			unauthorized(w)
			return
		}
		zap.S().Debugf("User %s Authenticated", user.UserName())
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalMiddleware lets anonymous requests through. Requests that do carry
// credentials must carry valid ones.
func (m *MiddlewareDB) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		m.Middleware(next).ServeHTTP(w, r)
	})
}

// RequireRole only lets through users holding one of the given roles.
// It must run after Middleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || !HasRole(user, roles...) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasRole reports whether the user holds any of roles
func HasRole(user auth.Info, roles ...string) bool {
	for _, g := range user.Groups() {
		for _, role := range roles {
			if g == role {
				return true
			}
		}
	}
	return false
}

// CreateToken issues a signed bearer token for a user that passed basic auth
func (m *MiddlewareDB) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "basic auth failed", http.StatusUnauthorized)
		return
	}

	role := ""
	if groups := user.Groups(); len(groups) > 0 {
		role = groups[0]
	}
	token, err := m.SignToken(user.ID(), user.UserName(), role, m.now())
	if err != nil {
		zap.S().Errorw("failed to sign token", "error", err)
		http.Error(w, "failed to sign token", http.StatusInternalServerError)
		return
	}

	responseBody, err := json.Marshal(models.TokenResponse{Token: token, ID: user.ID(), Role: role})
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Write(responseBody)
}

// SignToken returns an HS256 JWT for the given user
func (m *MiddlewareDB) SignToken(userID, email, role string, now time.Time) (string, error) {
	ttl := m.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
}

// VerifyToken checks a bearer token's signature and expiry
func (m *MiddlewareDB) VerifyToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errInvalidToken
	}
	exp := strconv.FormatInt(claims.ExpiresAt.Unix(), 10)
	return auth.NewDefaultUser(claims.Email, claims.Subject, []string{claims.Role}, map[string][]string{expiresKey: {exp}}), nil
}

func (m *MiddlewareDB) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// expiringCache drops a cached bearer decision once its token has expired,
// so the token is verified again (and rejected) instead of outliving its exp
type expiringCache struct {
	store.Cache
	now func() time.Time
}

func (c *expiringCache) Load(key string, r *http.Request) (interface{}, bool, error) {
	v, ok, err := c.Cache.Load(key, r)
	if err != nil || !ok {
		return v, ok, err
	}
	info, isInfo := v.(auth.Info)
	if !isInfo {
		return v, ok, nil
	}
	exp, err := strconv.ParseInt(firstOf(info.Extensions()[expiresKey]), 10, 64)
	if err != nil || !c.now().Before(time.Unix(exp, 0)) {
		_ = c.Cache.Delete(key, r)
		return nil, false, nil
	}
	return v, true, nil
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// ValidateUser validates a user's email and password against the users collection
func (m *MiddlewareDB) ValidateUser(ctx context.Context, r *http.Request, email, password string) (auth.Info, error) {
	usernameHash := sha256.Sum256([]byte(strings.ToLower(email)))

	user, err := m.DB.FindOne(ctx, bson.M{"email": strings.ToLower(email)})
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email")
	}

	expectedUsernameHash := sha256.Sum256([]byte(strings.ToLower(user.Email)))
	usernameMatch := subtle.ConstantTimeCompare(usernameHash[:], expectedUsernameHash[:]) == 1

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	if err != nil {
		return nil, fmt.Errorf("failed to compare password")
	}

	if !usernameMatch {
		return nil, fmt.Errorf("invalid credentials")
	}
	role := user.Role
	if role == "" {
		role = models.RolePatient
	}
	return auth.NewDefaultUser(user.Email, user.ID.Hex(), []string{role}, nil), nil
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "unauthorized"}`))
}
