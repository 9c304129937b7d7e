package endpoint

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/bringyour/remoteview/protocol"
)

const AuthIssuer = "remoteview"

var ErrAuth = errors.New("Auth error")

type AuthClaims struct {
	ObserverId string `json:"observer_id"`
	gojwt.RegisteredClaims
}

// HS256 token the observer presents as its first message
func NewAuthToken(secret []byte, observerId protocol.ObjectAddress, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &AuthClaims{
		ObserverId: observerId.String(),
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    AuthIssuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func VerifyAuthToken(secret []byte, tokenStr string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	parser := gojwt.NewParser(
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(AuthIssuer),
		gojwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *gojwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrAuth, err)
	}
	if _, err := protocol.ParseObjectAddress(claims.ObserverId); err != nil {
		return nil, errors.Join(ErrAuth, err)
	}
	return claims, nil
}
