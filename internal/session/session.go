package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/99designs/keyring"
)

const (
	// DefaultTTL 普通登录的会话有效期
	DefaultTTL = 7 * 24 * time.Hour
	// RememberTTL 勾选"记住我"时的会话有效期
	RememberTTL = 30 * 24 * time.Hour

	itemKey = "session"
)

var (
	// ErrNoSession 本地没有保存会话
	ErrNoSession = errors.New("not logged in")
	// ErrExpired 本地会话已过期
	ErrExpired = errors.New("session expired")
)

// User 会话中缓存的用户信息
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session 命令行客户端的登录会话
type Session struct {
	ServerURL string    `json:"serverUrl"`
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiryFor 计算会话过期时间
func ExpiryFor(now time.Time, remember bool) time.Time {
	if remember {
		return now.Add(RememberTTL)
	}
	return now.Add(DefaultTTL)
}

// Store 基于系统密钥环的会话存储
type Store struct {
	ring  keyring.Keyring
	clock func() time.Time
}

// Option 存储选项
type Option func(*Store)

// WithClock 设置时钟,用于测试
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// Open 打开指定服务名下的系统密钥环
func Open(serviceName string, opts ...Option) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		FileDir:                  "~/.taskflow/keyring",
		FilePasswordFunc:         keyring.TerminalPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return NewStore(ring, opts...), nil
}

// NewStore 使用给定的密钥环创建存储
func NewStore(ring keyring.Keyring, opts ...Option) *Store {
	s := &Store{ring: ring, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save 保存会话,未设置过期时间时按默认有效期计算
func (s *Store) Save(sess *Session, remember bool) error {
	if sess.Token == "" {
		return errors.New("session token is empty")
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = ExpiryFor(s.clock(), remember)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.ring.Set(keyring.Item{
		Key:         itemKey,
		Data:        data,
		Label:       "TaskFlow session",
		Description: "TaskFlow CLI login token",
	})
}

// Load 读取会话,过期的会话会被删除
func (s *Store) Load() (*Session, error) {
	item, err := s.ring.Get(itemKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(item.Data, &sess); err != nil {
		_ = s.ring.Remove(itemKey)
		return nil, ErrNoSession
	}
	if !s.clock().Before(sess.ExpiresAt) {
		_ = s.ring.Remove(itemKey)
		return nil, ErrExpired
	}
	return &sess, nil
}

// Clear 删除会话,没有会话时不报错
func (s *Store) Clear() error {
	err := s.ring.Remove(itemKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
