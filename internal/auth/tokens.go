package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

// Claims are the JWT claims of both token types. Subject holds the user id.
type Claims struct {
	Type string `json:"typ"`
	jwt.StandardClaims
}

// UserID returns the user id carried in the subject claim.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// ExpiresIn returns how long the token stays valid after now.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	return time.Unix(c.ExpiresAt, 0).Sub(now)
}

// TokenPair is what a successful login hands out.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL is the lifetime of an access token.
func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// Issue signs a fresh access/refresh pair for userID.
func (i *TokenIssuer) Issue(userID int64) (TokenPair, error) {
	access, err := i.sign(userID, AccessToken, i.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(userID, RefreshToken, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Access signs a new access token for userID.
func (i *TokenIssuer) Access(userID int64) (string, error) {
	return i.sign(userID, AccessToken, i.accessTTL)
}

func (i *TokenIssuer) sign(userID int64, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Type: typ,
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("error while signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, expiry and type of a token.
func (i *TokenIssuer) Parse(tokenString, typ string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return &claims, nil
}
