// Package auth implements the access-token codec: issuing and verifying
// short-lived, self-contained HS256 JWTs. It is stateless and does no I/O;
// refresh tokens are handled elsewhere.
package auth

import (
	"errors"
	"time"

	"github.com/forkful/authcore/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed claim set carried by an access token: registered
// claims plus the subject's email and role.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// GenerateToken signs a new access token for the given identity, valid for
// validityDuration from now.
func GenerateToken(userID, email, role string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
		Email:  email,
		Role:   role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry and returns the claims.
//
// Expiry and forgery are distinguished because callers react differently:
// common.ErrTokenExpired means "refresh and retry", common.ErrInvalidToken
// means "re-authenticate".
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		// Signature problems win over expiry: a forged token must never be
		// classified as merely expired, or it could trigger the refresh path.
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, common.ErrInvalidToken
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
