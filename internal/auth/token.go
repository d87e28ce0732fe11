// Package auth 签发和校验访问 token
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mautops/taskflow-gin/internal/task"
)

var (
	// ErrInvalidToken token 无法解析或签名错误
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked token 已注销
	ErrTokenRevoked = errors.New("token revoked")
)

// Identity 已认证用户
type Identity struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  task.Role `json:"role"`
}

// IsManager 是否为经理
func (i Identity) IsManager() bool {
	return i.Role == task.RoleManager
}

// Claims JWT 声明
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Identity 从声明还原用户
func (c *Claims) Identity() Identity {
	return Identity{ID: c.Subject, Name: c.Name, Email: c.Email, Role: task.Role(c.Role)}
}

// TokenManager HS256 token 签发与校验
type TokenManager struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	rememberTTL time.Duration
	clock       func() time.Time
	revoked     *RevocationList
}

// NewTokenManager 创建 token 管理器
func NewTokenManager(secret, issuer string, ttl, rememberTTL time.Duration, clock func() time.Time) *TokenManager {
	if clock == nil {
		clock = time.Now
	}
	return &TokenManager{
		secret:      []byte(secret),
		issuer:      issuer,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		clock:       clock,
		revoked:     NewRevocationList(clock),
	}
}

// Issue 签发 token,remember 为真时使用较长有效期
func (m *TokenManager) Issue(id Identity, remember bool) (string, time.Time, error) {
	now := m.clock()
	ttl := m.ttl
	if remember {
		ttl = m.rememberTTL
	}
	expiresAt := now.Add(ttl)

	claims := &Claims{
		Name:  id.Name,
		Email: id.Email,
		Role:  string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate 校验签名、签发方、有效期和注销状态
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.clock),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := task.ParseRole(claims.Role); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if m.revoked.IsRevoked(claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke 注销 token
func (m *TokenManager) Revoke(claims *Claims) {
	if claims == nil || claims.ExpiresAt == nil {
		return
	}
	m.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
}

// Revocations 返回注销列表
func (m *TokenManager) Revocations() *RevocationList {
	return m.revoked
}
