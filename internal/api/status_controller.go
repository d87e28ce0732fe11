package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/task"
)

// StatusInfo 状态元数据和本地化名称
type StatusInfo struct {
	Value string `json:"value" example:"pending_approval"`
	Label string `json:"label" example:"Pending approval"`
	task.StatusMeta
}

func statusInfo(ctx *gin.Context, s task.Status) StatusInfo {
	meta := s.Meta()
	return StatusInfo{Value: string(s), Label: T(ctx, meta.LabelKey), StatusMeta: meta}
}

func statusInfos(ctx *gin.Context, statuses []task.Status) []StatusInfo {
	out := make([]StatusInfo, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, statusInfo(ctx, s))
	}
	return out
}

// Statuses 状态列表
// @Summary      状态列表
// @Description  返回全部任务状态及其分类,label 按 lang 参数或 Accept-Language 本地化
// @Tags         提交周期
// @Produce      json
// @Param        lang query string false "语言 en/zh"
// @Success      200  {object}  Response{data=[]StatusInfo}
// @Router       /statuses [get]
func Statuses(ctx *gin.Context) {
	Success(ctx, statusInfos(ctx, task.AllStatuses))
}
