package devfacade

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionIssuer mints and validates the HS256 session tokens handed out on
// successful authentication. The demo server verifies the same tokens.
type SessionIssuer struct {
	Secret   string
	Issuer   string
	Expiry   time.Duration
	Audience string
}

// SessionClaims are the claims embedded in a session token.
type SessionClaims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

func NewSessionIssuer(secret string) *SessionIssuer {
	return &SessionIssuer{
		Secret:   secret,
		Issuer:   "authflow-dev",
		Audience: "authflow",
		Expiry:   24 * time.Hour,
	}
}

// IssueToken creates a signed session token for the account.
func (s *SessionIssuer) IssueToken(account *Account) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		Email:    account.Email,
		Username: account.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.Expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    s.Issuer,
			Subject:   strconv.FormatInt(account.UserID, 10),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{s.Audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns its claims.
func (s *SessionIssuer) ParseToken(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}
