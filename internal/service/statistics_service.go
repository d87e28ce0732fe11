package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/mautops/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// StatisticsService 审批统计服务
type StatisticsService interface {
	GetReviewStatistics(ctx context.Context) (*ReviewStatistics, error)
	GetReviewStatisticsByReviewer(ctx context.Context) ([]*ReviewerStatistics, error)
}

// ReviewStatistics 审批统计
type ReviewStatistics struct {
	TotalReviews  int64   `json:"totalReviews"`
	ApprovedCount int64   `json:"approvedCount"`
	RejectedCount int64   `json:"rejectedCount"`
	ApprovalRate  float64 `json:"approvalRate"` // 百分比
}

// ReviewerStatistics 按经理统计
type ReviewerStatistics struct {
	ReviewerID string `json:"reviewerId"`
	Approved   int64  `json:"approved"`
	Rejected   int64  `json:"rejected"`
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetReviewStatistics 获取审批统计
func (s *statisticsService) GetReviewStatistics(ctx context.Context) (*ReviewStatistics, error) {
	var results []struct {
		Result string
		Count  int64
	}

	err := s.db.WithContext(ctx).Model(&model.ReviewRecordModel{}).
		Select("result, COUNT(*) as count").
		Group("result").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get review statistics: %w", err)
	}

	stats := &ReviewStatistics{}
	for _, r := range results {
		stats.TotalReviews += r.Count
		switch r.Result {
		case "approve":
			stats.ApprovedCount = r.Count
		case "reject":
			stats.RejectedCount = r.Count
		}
	}
	if stats.TotalReviews > 0 {
		stats.ApprovalRate = float64(stats.ApprovedCount) / float64(stats.TotalReviews) * 100
	}
	return stats, nil
}

// GetReviewStatisticsByReviewer 按经理统计审批结果
func (s *statisticsService) GetReviewStatisticsByReviewer(ctx context.Context) ([]*ReviewerStatistics, error) {
	var results []struct {
		ReviewerID string
		Result     string
		Count      int64
	}

	err := s.db.WithContext(ctx).Model(&model.ReviewRecordModel{}).
		Select("reviewer_id, result, COUNT(*) as count").
		Group("reviewer_id, result").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get review statistics by reviewer: %w", err)
	}

	index := make(map[string]*ReviewerStatistics)
	for _, r := range results {
		st, ok := index[r.ReviewerID]
		if !ok {
			st = &ReviewerStatistics{ReviewerID: r.ReviewerID}
			index[r.ReviewerID] = st
		}
		switch r.Result {
		case "approve":
			st.Approved += r.Count
		case "reject":
			st.Rejected += r.Count
		}
	}

	stats := make([]*ReviewerStatistics, 0, len(index))
	for _, st := range index {
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ReviewerID < stats[j].ReviewerID })
	return stats, nil
}
