package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/week"
)

// WeekController 提交周期控制器
type WeekController struct {
	calc *week.Calculator
}

// NewWeekController 创建提交周期控制器
func NewWeekController(calc *week.Calculator) *WeekController {
	return &WeekController{calc: calc}
}

// WeeksResponse 提交周期信息
type WeeksResponse struct {
	Now             time.Time     `json:"now"`
	CurrentWeek     string        `json:"currentWeek" example:"2025-W10"`
	NextWeek        string        `json:"nextWeek" example:"2025-W11"`
	CurrentDeadline time.Time     `json:"currentDeadline"`
	CurrentOpen     bool          `json:"currentOpen"`
	Available       []week.Option `json:"available"`
}

// Weeks 可提交的周
// @Summary      可提交的周
// @Description  返回本周、下周以及仍开放提交的周列表
// @Tags         提交周期
// @Produce      json
// @Success      200  {object}  Response{data=WeeksResponse}
// @Router       /weeks [get]
// @Security     BearerAuth
func (c *WeekController) Weeks(ctx *gin.Context) {
	current := c.calc.CurrentWeek()
	Success(ctx, WeeksResponse{
		Now:             c.calc.Now(),
		CurrentWeek:     current.String(),
		NextWeek:        c.calc.NextWeek().String(),
		CurrentDeadline: c.calc.Deadline(current),
		CurrentOpen:     c.calc.IsSubmissionOpen(current),
		Available:       c.calc.AvailableWeeks(),
	})
}
