package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/event"
)

// EventSource 已持久化事件的查询
type EventSource interface {
	Since(ctx context.Context, seq uint64, userID string, limit int) ([]event.Event, error)
}

const (
	defaultEventLimit = 100
	maxEventLimit     = 500
)

// EventController 实时事件补拉控制器
type EventController struct {
	source EventSource
}

// NewEventController 创建事件控制器
func NewEventController(source EventSource) *EventController {
	return &EventController{source: source}
}

// Since 补拉事件
// @Summary      补拉事件
// @Description  断线重连的客户端按 seq 获取错过的广播事件和自己的通知
// @Tags         实时
// @Produce      json
// @Param        since query int false "上次收到的 seq" default(0)
// @Param        limit query int false "最多返回条数" default(100)
// @Success      200  {object}  Response{data=[]event.Event}
// @Failure      400  {object}  ErrorResponse
// @Router       /events [get]
// @Security     BearerAuth
func (c *EventController) Since(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	since, err := strconv.ParseUint(ctx.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		badRequest(ctx, err)
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultEventLimit)))
	if err != nil {
		badRequest(ctx, err)
		return
	}
	if limit <= 0 || limit > maxEventLimit {
		limit = maxEventLimit
	}

	events, err := c.source.Since(ctx.Request.Context(), since, actor.ID, limit)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, events)
}
