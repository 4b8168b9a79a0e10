package authprovider

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/sprintboard/internal/config"
)

const SessionCookie = "__session"

// Claims is the session token payload.
type Claims struct {
	OrgID   string `json:"org_id,omitempty"`
	OrgRole string `json:"org_role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 session tokens.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(cfg config.Config) *Verifier {
	return &Verifier{
		secret: []byte(cfg.AuthJWTSecret),
		issuer: cfg.AuthJWTIssuer,
		now:    time.Now,
	}
}

// Authenticate extracts the session from the Authorization header or the
// session cookie. It returns ok=false for anonymous requests.
func (v *Verifier) Authenticate(r *http.Request) (Session, bool, error) {
	token := bearerToken(r)
	if token == "" {
		return Session{}, false, nil
	}
	session, err := v.Verify(token)
	if err != nil {
		return Session{}, false, err
	}
	return session, true, nil
}

func (v *Verifier) Verify(token string) (Session, error) {
	if len(v.secret) == 0 {
		return Session{}, ErrInvalidToken.Wrap(errors.New("signing secret not configured"))
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Session{}, ErrInvalidToken.Wrap(err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Session{}, ErrInvalidToken
	}

	return Session{
		UserID:  claims.Subject,
		OrgID:   claims.OrgID,
		OrgRole: claims.OrgRole,
	}, nil
}

// Issue signs a session token. Used by the dev CLI and tests.
func (v *Verifier) Issue(session Session, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("signing secret not configured")
	}
	now := v.now()
	claims := Claims{
		OrgID:   session.OrgID,
		OrgRole: session.OrgRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
