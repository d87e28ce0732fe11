package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mautops/taskflow-gin/internal/session"
	"github.com/tidwall/gjson"
)

// Error 服务端返回的错误响应
type Error struct {
	Status  int
	Message string
	Detail  string
	Reason  string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%d %s", e.Status, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Client TaskFlow REST 接口的命令行客户端
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New 创建客户端
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login 登录并返回待保存的会话
func (c *Client) Login(ctx context.Context, email, password string, remember bool) (*session.Session, error) {
	body := map[string]any{"email": email, "password": password, "rememberMe": remember}
	data, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		ServerURL: c.baseURL,
		Token:     data.Get("token").String(),
		User:      userFrom(data.Get("user")),
	}
	if exp := data.Get("expiresAt"); exp.Exists() {
		sess.ExpiresAt = exp.Time()
	}
	if sess.Token == "" {
		return nil, fmt.Errorf("login response carries no token")
	}
	return sess, nil
}

// Logout 注销当前令牌
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil)
	return err
}

// Me 获取当前用户
func (c *Client) Me(ctx context.Context) (session.User, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil)
	if err != nil {
		return session.User{}, err
	}
	return userFrom(data), nil
}

func userFrom(r gjson.Result) session.User {
	return session.User{
		ID:    r.Get("id").String(),
		Name:  r.Get("name").String(),
		Email: r.Get("email").String(),
		Role:  r.Get("role").String(),
	}
}

// do 发送请求并返回响应信封中的 data 字段
func (c *Client) do(ctx context.Context, method, path string, body any) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	env := gjson.ParseBytes(raw)
	if resp.StatusCode >= http.StatusBadRequest {
		return gjson.Result{}, &Error{
			Status:  resp.StatusCode,
			Message: env.Get("message").String(),
			Detail:  env.Get("detail").String(),
			Reason:  env.Get("reason").String(),
		}
	}
	return env.Get("data"), nil
}
