package event

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/taskflow-gin/internal/model"
	"github.com/mautops/taskflow-gin/internal/repository"
)

// PersistingPublisher 先持久化事件再转发,断线客户端可按 seq 补拉
type PersistingPublisher struct {
	repo repository.EventRepository
	next Publisher
}

// NewPersistingPublisher 创建持久化发布者
func NewPersistingPublisher(repo repository.EventRepository, next Publisher) *PersistingPublisher {
	if next == nil {
		next = Nop
	}
	return &PersistingPublisher{repo: repo, next: next}
}

// Publish 保存事件并转发给下游
func (p *PersistingPublisher) Publish(ctx context.Context, ev Event) error {
	m := &model.EventModel{
		ID:        ev.ID,
		TaskID:    ev.TaskID,
		UserID:    ev.UserID,
		Type:      string(ev.Type),
		Data:      ev.Data,
		CreatedAt: ev.CreatedAt,
	}
	if err := p.repo.Save(ctx, m); err != nil {
		return fmt.Errorf("failed to persist event: %w", err)
	}
	ev.Seq = m.Seq
	return p.next.Publish(ctx, ev)
}

// Since 返回 seq 之后用户可见的事件
func (p *PersistingPublisher) Since(ctx context.Context, seq uint64, userID string, limit int) ([]Event, error) {
	models, err := p.repo.FindSince(ctx, seq, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	out := make([]Event, 0, len(models))
	for _, m := range models {
		out = append(out, Event{
			Seq:       m.Seq,
			ID:        m.ID,
			Type:      Type(m.Type),
			TaskID:    m.TaskID,
			UserID:    m.UserID,
			Data:      m.Data,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// Prune 删除超过保留期的事件
func (p *PersistingPublisher) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return p.repo.DeleteBefore(ctx, time.Now().UTC().Add(-retention))
}
