package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/service"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// File 初始数据文件
type File struct {
	Users []User `yaml:"users"`
	Tasks []Task `yaml:"tasks"`
}

// User 初始用户
type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Task 初始任务,Owner 为所属用户的邮箱
type Task struct {
	Owner          string   `yaml:"owner"`
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	Priority       string   `yaml:"priority"`
	Week           string   `yaml:"week"`
	DueDate        string   `yaml:"due_date"`
	EstimatedHours *float64 `yaml:"estimated_hours"`
	Draft          bool     `yaml:"draft"`
}

// Result 导入结果
type Result struct {
	Users   int `json:"users"`
	Tasks   int `json:"tasks"`
	Skipped int `json:"skipped"`
}

// Load 读取并解析初始数据文件
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 格式的初始数据
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, u := range f.Users {
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user #%d: email and password are required", i+1)
		}
	}
	return &f, nil
}

// Seeder 把初始数据写入服务层
type Seeder struct {
	auth   service.AuthService
	tasks  service.TaskService
	logger *logrus.Logger
}

// NewSeeder 创建导入器
func NewSeeder(authService service.AuthService, taskService service.TaskService, logger *logrus.Logger) *Seeder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Seeder{auth: authService, tasks: taskService, logger: logger}
}

// Apply 导入用户和任务
// 已存在的用户通过登录取回身份,单个任务失败只记录警告
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	result := &Result{}
	owners := make(map[string]auth.Identity, len(f.Users))

	// 1. 用户
	for _, u := range f.Users {
		id, created, err := s.ensureUser(ctx, u)
		if err != nil {
			return result, fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
		if created {
			result.Users++
		}
		owners[strings.ToLower(u.Email)] = id
	}

	// 2. 任务
	for _, t := range f.Tasks {
		owner, ok := owners[strings.ToLower(t.Owner)]
		if !ok {
			s.logger.WithField("title", t.Title).WithField("owner", t.Owner).Warn("Seed task owner is not a seeded user")
			result.Skipped++
			continue
		}
		req, err := t.request()
		if err != nil {
			s.logger.WithError(err).WithField("title", t.Title).Warn("Skipping invalid seed task")
			result.Skipped++
			continue
		}
		if _, err := s.tasks.Create(ctx, owner, req); err != nil {
			s.logger.WithError(err).WithField("title", t.Title).Warn("Failed to seed task")
			result.Skipped++
			continue
		}
		result.Tasks++
	}

	s.logger.WithFields(logrus.Fields{
		"users":   result.Users,
		"tasks":   result.Tasks,
		"skipped": result.Skipped,
	}).Info("Seed data applied")
	return result, nil
}

func (s *Seeder) ensureUser(ctx context.Context, u User) (auth.Identity, bool, error) {
	resp, err := s.auth.Register(ctx, &service.RegisterRequest{
		Name:     u.Name,
		Email:    u.Email,
		Password: u.Password,
		Role:     u.Role,
	})
	if err == nil {
		return resp.User.Identity(), true, nil
	}
	if !errors.Is(err, service.ErrEmailTaken) {
		return auth.Identity{}, false, err
	}
	resp, err = s.auth.Login(ctx, &service.LoginRequest{Email: u.Email, Password: u.Password})
	if err != nil {
		return auth.Identity{}, false, err
	}
	return resp.User.Identity(), false, nil
}

func (t Task) request() (*service.CreateTaskRequest, error) {
	req := &service.CreateTaskRequest{
		Title:            t.Title,
		Description:      t.Description,
		Priority:         t.Priority,
		WeekSubmittedFor: t.Week,
		EstimatedHours:   t.EstimatedHours,
		IsDraft:          t.Draft,
	}
	if t.DueDate != "" {
		d, err := task.ParseDate(t.DueDate)
		if err != nil {
			return nil, err
		}
		req.DueDate = &d
	}
	return req, nil
}
