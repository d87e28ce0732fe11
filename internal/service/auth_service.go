package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/model"
	"github.com/mautops/taskflow-gin/internal/repository"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/utils"
	"gorm.io/gorm"
)

const maxNameLength = 255

// AuthService 认证服务
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	CurrentUser(ctx context.Context, id string) (*User, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	ListUsers(ctx context.Context) ([]*User, error)
}

// RegisterRequest 注册请求
// @Description 注册新用户
type RegisterRequest struct {
	Name       string `json:"name" example:"Alice" binding:"required"`
	Email      string `json:"email" example:"alice@example.com" binding:"required"`
	Password   string `json:"password" example:"correct-horse" binding:"required"`
	Role       string `json:"role" example:"employee" enums:"employee,manager"` // 默认 employee
	RememberMe bool   `json:"rememberMe"`
}

// LoginRequest 登录请求
// @Description 邮箱密码登录,rememberMe 为真时 token 有效期 30 天
type LoginRequest struct {
	Email      string `json:"email" example:"alice@example.com" binding:"required"`
	Password   string `json:"password" example:"correct-horse" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// User 用户信息
type User struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  task.Role `json:"role" swaggertype:"string"`
}

// AuthResponse 登录/注册结果
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

type authService struct {
	users       repository.UserRepository
	tokens      *auth.TokenManager
	auditLogSvc AuditLogService
	bcryptCost  int
}

// NewAuthService 创建认证服务
func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, auditLogSvc AuditLogService, bcryptCost int) AuthService {
	return &authService{
		users:       users,
		tokens:      tokens,
		auditLogSvc: auditLogSvc,
		bcryptCost:  bcryptCost,
	}
}

// Register 注册用户并签发 token
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	// 1. 校验输入
	name, err := utils.TrimAndValidate(req.Name, maxNameLength)
	if err != nil {
		return nil, &utils.ValidationError{Code: "INVALID_NAME", Field: "name", Message: "name " + err.Error()}
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	role := task.RoleEmployee
	if req.Role != "" {
		if role, err = task.ParseRole(req.Role); err != nil {
			return nil, &utils.ValidationError{Code: "INVALID_ROLE", Field: "role", Message: err.Error()}
		}
	}

	// 2. 检查邮箱是否已注册
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// 3. 保存用户
	hash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	m := &model.UserModel{
		ID:           "user-" + uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         string(role),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, m.ID, "register", "user", m.ID, map[string]string{"role": m.Role})
	}
	return s.issue(toUser(m), req.RememberMe)
}

// Login 校验密码并签发 token
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	m, err := s.users.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !utils.VerifyPassword(req.Password, m.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// bcrypt cost 调整后在登录时升级旧哈希
	if utils.NeedsRehash(m.PasswordHash, s.bcryptCost) {
		if hash, err := utils.HashPassword(req.Password, s.bcryptCost); err == nil {
			m.PasswordHash = hash
			_ = s.users.Save(ctx, m)
		}
	}

	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, m.ID, "login", "user", m.ID, map[string]bool{"remember_me": req.RememberMe})
	}
	return s.issue(toUser(m), req.RememberMe)
}

// CurrentUser 获取当前用户
func (s *authService) CurrentUser(ctx context.Context, id string) (*User, error) {
	m, err := s.users.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return toUser(m), nil
}

// Logout 注销 token
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return auth.ErrInvalidToken
	}
	s.tokens.Revoke(claims)
	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, claims.Subject, "logout", "user", claims.Subject, map[string]string{"jti": claims.ID})
	}
	return nil
}

// ListUsers 列出全部用户
func (s *authService) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*User, 0, len(rows))
	for _, r := range rows {
		out = append(out, toUser(r))
	}
	return out, nil
}

func (s *authService) issue(u *User, remember bool) (*AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(u.Identity(), remember)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// Identity 转换为认证身份
func (u *User) Identity() auth.Identity {
	return auth.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func toUser(m *model.UserModel) *User {
	return &User{ID: m.ID, Name: m.Name, Email: m.Email, Role: task.Role(m.Role)}
}
