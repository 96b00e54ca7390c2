package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/somaedu/soma-backend/core"
	"github.com/somaedu/soma-backend/core/identity"
)

const (
	parentCookieName = "soma_parent"
	childCookieName  = "soma_child"

	roleParent = "parent"
	roleChild  = "child"

	contextSessionKey = "session"
)

// Claims represents the authorization claims transmitted via a JWT.
// Subject is the parent ID for parent tokens and the child ID for child
// tokens; ParentID is only set on child tokens.
type Claims struct {
	jwt.StandardClaims
	Role     string `json:"role"`
	ParentID string `json:"pid,omitempty"`
}

type sessionAuth struct {
	appName       string
	signingKey    []byte
	parentTTL     time.Duration
	childTTL      time.Duration
	secureCookies bool
}

func newSessionAuth(conf *core.Config) *sessionAuth {
	return &sessionAuth{
		appName:       conf.AppName,
		signingKey:    []byte(conf.SecretKey),
		parentTTL:     conf.Server.ParentSessionTTL,
		childTTL:      conf.Server.ChildSessionTTL,
		secureCookies: !conf.Debug,
	}
}

func (a *sessionAuth) claims(s identity.Session) *Claims {
	switch s := s.(type) {
	case identity.ParentSession:
		return &Claims{
			StandardClaims: jwt.StandardClaims{
				Issuer:    a.appName,
				Subject:   s.ParentID,
				IssuedAt:  s.IssuedAt.Unix(),
				ExpiresAt: s.ExpiresAt.Unix(),
			},
			Role: roleParent,
		}
	case identity.ChildSession:
		return &Claims{
			StandardClaims: jwt.StandardClaims{
				Issuer:    a.appName,
				Subject:   s.ChildID,
				IssuedAt:  s.IssuedAt.Unix(),
				ExpiresAt: s.ExpiresAt.Unix(),
			},
			Role:     roleChild,
			ParentID: s.ParentID,
		}
	}
	return nil
}

// GenerateToken generates a signed JWT token string representing the session claims.
func (a *sessionAuth) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *sessionAuth) parseToken(tokenStr string) (identity.Session, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, errUnauthenticated
	}

	switch claims.Role {
	case roleParent:
		return identity.ParentSession{
			ParentID:  claims.Subject,
			IssuedAt:  time.Unix(claims.IssuedAt, 0),
			ExpiresAt: time.Unix(claims.ExpiresAt, 0),
		}, nil
	case roleChild:
		return identity.ChildSession{
			ChildID:   claims.Subject,
			ParentID:  claims.ParentID,
			IssuedAt:  time.Unix(claims.IssuedAt, 0),
			ExpiresAt: time.Unix(claims.ExpiresAt, 0),
		}, nil
	}
	return nil, errUnauthenticated
}

func (a *sessionAuth) setSessionCookie(ctx echo.Context, s identity.Session) error {
	token, err := a.GenerateToken(a.claims(s))
	if err != nil {
		return err
	}

	// The cookie must not outlive the token it carries.
	name := parentCookieName
	expires := NowFunc().Add(a.parentTTL)
	if cs, ok := s.(identity.ChildSession); ok {
		name = childCookieName
		expires = cs.ExpiresAt
	}
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (a *sessionAuth) clearSessionCookie(ctx echo.Context, name string) {
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// parentSession resolves a valid ParentSession from the parent cookie.
func (a *sessionAuth) parentSession(ctx echo.Context) (identity.ParentSession, error) {
	cookie, err := ctx.Cookie(parentCookieName)
	if err != nil {
		return identity.ParentSession{}, errUnauthenticated
	}
	s, err := a.parseToken(cookie.Value)
	if err != nil {
		return identity.ParentSession{}, err
	}
	ps, ok := s.(identity.ParentSession)
	if !ok || ps.Expired(NowFunc()) {
		return identity.ParentSession{}, errUnauthenticated
	}
	return ps, nil
}

// session resolves the caller's identity: the child cookie wins when both
// are present.
func (a *sessionAuth) session(ctx echo.Context) (identity.Session, error) {
	if cookie, err := ctx.Cookie(childCookieName); err == nil {
		s, err := a.parseToken(cookie.Value)
		if err == nil && !s.Expired(NowFunc()) {
			return s, nil
		}
	}
	ps, err := a.parentSession(ctx)
	if err != nil {
		return nil, err
	}
	return ps, nil
}

func contextSession(ctx echo.Context) (identity.Session, error) {
	if s, ok := ctx.Get(contextSessionKey).(identity.Session); ok {
		return s, nil
	}
	return nil, errUnauthenticated
}

func contextParentSession(ctx echo.Context) (identity.ParentSession, error) {
	s, err := contextSession(ctx)
	if err != nil {
		return identity.ParentSession{}, err
	}
	ps, ok := s.(identity.ParentSession)
	if !ok {
		return identity.ParentSession{}, errHttpForbidden
	}
	return ps, nil
}

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now
