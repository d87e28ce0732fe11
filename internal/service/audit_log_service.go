package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/taskflow-gin/internal/model"
	"github.com/mautops/taskflow-gin/internal/repository"
)

// AuditLogService 审计日志服务
type AuditLogService interface {
	RecordAction(ctx context.Context, userID string, action string, resourceType string, resourceID string, details interface{}) error
	ListByResource(ctx context.Context, resourceType string, resourceID string) ([]*AuditLogEntry, error)
	ListByUser(ctx context.Context, userID string) ([]*AuditLogEntry, error)
}

// AuditLogEntry 审计日志条目
// @Description 一次被记录的操作
type AuditLogEntry struct {
	ID           string          `json:"id" example:"0b6f..."`
	UserID       string          `json:"userId" example:"user-001"`
	Action       string          `json:"action" example:"update"`
	ResourceType string          `json:"resourceType" example:"task"`
	ResourceID   string          `json:"resourceId" example:"task-001"`
	RequestID    string          `json:"requestId,omitempty"`
	IP           string          `json:"ip,omitempty"`
	Details      json.RawMessage `json:"details,omitempty" swaggertype:"object"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// auditListLimit 单次查询返回的最大条数
const auditListLimit = 200

// auditLogService 审计日志服务实现
type auditLogService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(auditRepo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{
		auditRepo: auditRepo,
	}
}

// RecordAction 记录操作审计日志
func (s *auditLogService) RecordAction(
	ctx context.Context,
	userID string,
	action string,
	resourceType string,
	resourceID string,
	details interface{},
) error {
	// 序列化详情
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}

	auditLog := &model.AuditLogModel{
		ID:           uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    GetRequestID(ctx),
		IP:           GetClientIP(ctx),
		UserAgent:    truncate(GetUserAgent(ctx), 255),
		Details:      detailsJSON,
		CreatedAt:    time.Now().UTC(),
	}
	if err := auditLog.Validate(); err != nil {
		return err
	}

	return s.auditRepo.Save(ctx, auditLog)
}

// ListByResource 查询资源的审计日志
func (s *auditLogService) ListByResource(ctx context.Context, resourceType string, resourceID string) ([]*AuditLogEntry, error) {
	logs, err := s.auditRepo.FindByResource(ctx, resourceType, resourceID, auditListLimit)
	if err != nil {
		return nil, err
	}
	return toAuditEntries(logs), nil
}

// ListByUser 查询用户的审计日志
func (s *auditLogService) ListByUser(ctx context.Context, userID string) ([]*AuditLogEntry, error) {
	logs, err := s.auditRepo.FindByUserID(ctx, userID, auditListLimit)
	if err != nil {
		return nil, err
	}
	return toAuditEntries(logs), nil
}

func toAuditEntries(logs []*model.AuditLogModel) []*AuditLogEntry {
	out := make([]*AuditLogEntry, 0, len(logs))
	for _, l := range logs {
		entry := &AuditLogEntry{
			ID:           l.ID,
			UserID:       l.UserID,
			Action:       l.Action,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			RequestID:    l.RequestID,
			IP:           l.IP,
			CreatedAt:    l.CreatedAt,
		}
		if len(l.Details) > 0 && json.Valid(l.Details) {
			entry.Details = json.RawMessage(l.Details)
		}
		out = append(out, entry)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
