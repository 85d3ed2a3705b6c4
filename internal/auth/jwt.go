// Package auth выдаёт и проверяет токены администратора хоста для REST API.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken токен не прошёл проверку
var ErrInvalidToken = errors.New("недействительный токен")

// minSecretLen минимальная длина ключа подписи в байтах
const minSecretLen = 32

// Claims содержимое токена
type Claims struct {
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// TokenIssuer подписывает токены HS256 одним ключом
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer создаёт издателя. secret в base64, не короче 32 байт;
// пустая строка означает случайный ключ на время жизни процесса.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	var key []byte
	if secret == "" {
		key = make([]byte, minSecretLen)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("генерация ключа: %w", err)
		}
	} else {
		decoded, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("ключ не в base64: %w", err)
		}
		if len(decoded) < minSecretLen {
			return nil, fmt.Errorf("ключ короче %d байт", minSecretLen)
		}
		key = decoded
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if issuer == "" {
		issuer = "gunguys"
	}
	return &TokenIssuer{secret: key, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Generate выдаёт токен для name
func (ti *TokenIssuer) Generate(name string, admin bool) (string, error) {
	now := ti.now()
	claims := &Claims{
		Name:    name,
		IsAdmin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    ti.issuer,
			Subject:   name,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Validate проверяет подпись, срок и издателя
func (ti *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, jwt.WithIssuer(ti.issuer), jwt.WithTimeFunc(ti.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecureSecret случайный ключ в base64 для конфигурации
func GenerateSecureSecret() (string, error) {
	b := make([]byte, minSecretLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
