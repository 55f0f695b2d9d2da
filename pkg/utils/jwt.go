package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// CustomerClaimsKey is the fiber Locals key holding the resolved *CustomerClaims.
const CustomerClaimsKey contextKey = "customer_claims"

var jwtSecret = []byte("secret")

// SetSecret allows injecting the secret from config
func SetSecret(secret string) {
	jwtSecret = []byte(secret)
}

type CustomerClaims struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name,omitempty"`
	jwt.RegisteredClaims
}

func GenerateToken(customerID, customerName string, ttl time.Duration) (string, error) {
	claims := CustomerClaims{
		CustomerID:   customerID,
		CustomerName: customerName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateToken(tokenString string) (*CustomerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomerClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	// Older tokens only carry the customer in "sub".
	if claims.CustomerID == "" {
		claims.CustomerID = claims.Subject
	}
	if claims.CustomerID == "" {
		return nil, errors.New("token carries no customer id")
	}

	return claims, nil
}
