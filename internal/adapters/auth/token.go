package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eventhub/internal/domain"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Permissions map[string][]string `json:"perms"`
}

type jwtIssuer struct {
	secret []byte
}

// NewJWTIssuer returns a TokenIssuer that signs JWTs with HS512 using the given secret.
func NewJWTIssuer(secret string) domain.TokenIssuer {
	return &jwtIssuer{secret: []byte(secret)}
}

func (i *jwtIssuer) Issue(claims *domain.Claims, expiry time.Duration) (string, error) {
	if claims == nil || claims.UserID == "" {
		return "", errors.New("token subject is required")
	}
	now := time.Now()
	c := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Permissions: claims.Permissions.Map(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, c)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

type jwtVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier returns a TokenVerifier for tokens produced by NewJWTIssuer.
// Expired, not-yet-valid, tampered or foreign-algorithm tokens all map to domain.ErrInvalidToken.
func NewJWTVerifier(secret string) domain.TokenVerifier {
	return &jwtVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *jwtVerifier) Verify(tokenString string) (*domain.Claims, error) {
	c := &jwtClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || c.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Claims{
		UserID:      c.Subject,
		Permissions: domain.PermissionSetFromMap(c.Permissions),
	}, nil
}
