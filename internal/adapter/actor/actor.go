package actor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/repository"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying a.
func NewContext(ctx context.Context, a entity.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor resolved for the request.
func FromContext(ctx context.Context) (entity.Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(entity.Actor)
	return a, ok && a.UserID != ""
}

// Resolver identifies the caller from a bearer token or the guest cookie.
type Resolver struct {
	secret     []byte
	cookieName string
	cookieTTL  time.Duration
	secure     bool
	users      repository.UserRepository
	newID      func() string
	now        func() time.Time
	log        logrus.FieldLogger
}

func NewResolver(cfg config.AuthConfig, users repository.UserRepository, logger logrus.FieldLogger) *Resolver {
	name := cfg.GuestCookie
	if name == "" {
		name = "storyquest_guest_id"
	}
	ttl := cfg.GuestCookieTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Resolver{
		secret:     []byte(cfg.JWTSecret),
		cookieName: name,
		cookieTTL:  ttl,
		secure:     cfg.SecureCookie,
		users:      users,
		newID:      func() string { return entity.GuestIDPrefix + uuid.NewString() },
		now:        time.Now,
		log:        logger.WithField("component", "actor"),
	}
}

// Resolve returns the actor for r. When a new guest id is issued the cookie to
// set on the response is returned too.
func (res *Resolver) Resolve(ctx context.Context, r *http.Request) (entity.Actor, *http.Cookie, error) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		sub, err := res.ParseToken(token)
		if err != nil {
			return entity.Actor{}, nil, err
		}
		return entity.RegisteredActor(sub), nil, nil
	}

	var issued *http.Cookie
	guestID := ""
	if c, err := r.Cookie(res.cookieName); err == nil && entity.IsGuestID(c.Value) {
		guestID = c.Value
	}
	if guestID == "" {
		guestID = res.newID()
		issued = &http.Cookie{
			Name:     res.cookieName,
			Value:    guestID,
			Path:     "/",
			Expires:  res.now().Add(res.cookieTTL),
			MaxAge:   int(res.cookieTTL / time.Second),
			HttpOnly: true,
			Secure:   res.secure,
			SameSite: http.SameSiteLaxMode,
		}
	}
	if err := res.users.EnsureGuest(ctx, guestID); err != nil {
		return entity.Actor{}, nil, fmt.Errorf("ensure guest: %w", err)
	}
	return entity.GuestActor(guestID), issued, nil
}

// ParseToken validates an HS256 token and returns its subject.
func (res *Resolver) ParseToken(token string) (string, error) {
	if len(res.secret) == 0 {
		return "", fmt.Errorf("%w: bearer tokens are not accepted", entity.ErrUnauthenticated)
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return res.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(res.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", entity.ErrUnauthenticated, err)
	}
	if claims.Subject == "" || entity.IsGuestID(claims.Subject) {
		return "", fmt.Errorf("%w: token has no usable subject", entity.ErrUnauthenticated)
	}
	return claims.Subject, nil
}

// IssueToken signs an HS256 token for subject. Used by operators and tests.
func (res *Resolver) IssueToken(subject string, ttl time.Duration) (string, error) {
	if len(res.secret) == 0 {
		return "", errors.New("auth.jwt_secret is not configured")
	}
	now := res.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(res.secret)
}

// Middleware resolves the actor once per request and stores it in the context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, cookie, err := res.Resolve(r.Context(), r)
		if err != nil {
			if errors.Is(err, entity.ErrUnauthenticated) {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			res.log.WithError(err).Error("resolve actor")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if cookie != nil {
			http.SetCookie(w, cookie)
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), a)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
