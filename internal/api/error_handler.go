package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/service"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/utils"
	"github.com/mautops/taskflow-gin/internal/week"
	"github.com/mautops/taskflow-gin/internal/workflow"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
	Reason  string
	Data    interface{}
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
// 处理器通过 c.Error 记录错误且尚未写响应时,由这里统一输出
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			apiErr = MapError(c, err)
		}
		writeAPIError(c, apiErr)
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// MapError 将领域错误映射为 HTTP 错误
func MapError(c *gin.Context, err error) *APIError {
	var (
		validationErr *utils.ValidationError
		conflictErr   *service.VersionConflictError
		transitionErr *workflow.TransitionError
	)

	switch {
	case errors.As(err, &validationErr):
		return &APIError{Code: http.StatusBadRequest, Message: T(c, "error.bad_request"), Detail: validationErr.Error(), Reason: validationErr.Code}
	case errors.As(err, &conflictErr):
		return &APIError{Code: http.StatusConflict, Message: T(c, "error.version_conflict"), Detail: err.Error(), Reason: "VERSION_CONFLICT", Data: conflictErr.Current}
	case errors.As(err, &transitionErr):
		return &APIError{Code: http.StatusUnprocessableEntity, Message: T(c, "error.invalid_status"), Detail: err.Error(), Reason: "INVALID_TRANSITION"}
	case errors.Is(err, week.ErrInvalidWeek),
		errors.Is(err, workflow.ErrInvalidReviewKey),
		errors.Is(err, task.ErrEmptyBatch),
		errors.Is(err, service.ErrEmptyUpdate):
		return &APIError{Code: http.StatusBadRequest, Message: T(c, "error.bad_request"), Detail: err.Error()}
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, service.ErrBatchNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return &APIError{Code: http.StatusNotFound, Message: T(c, "error.not_found"), Detail: err.Error()}
	case errors.Is(err, service.ErrSubmissionClosed):
		return &APIError{Code: http.StatusForbidden, Message: T(c, "error.submission_closed"), Detail: err.Error(), Reason: "SUBMISSION_CLOSED"}
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotEditable):
		return &APIError{Code: http.StatusForbidden, Message: T(c, "error.forbidden"), Detail: err.Error()}
	case errors.Is(err, task.ErrVersionConflict),
		errors.Is(err, service.ErrEmailTaken):
		return &APIError{Code: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, workflow.ErrInvalidTransition):
		return &APIError{Code: http.StatusUnprocessableEntity, Message: T(c, "error.invalid_status"), Detail: err.Error(), Reason: "INVALID_TRANSITION"}
	case errors.Is(err, service.ErrWeekImmutable),
		errors.Is(err, service.ErrBatchIncomplete),
		errors.Is(err, workflow.ErrRejectCommentRequired),
		errors.Is(err, workflow.ErrPendingDecision),
		errors.Is(err, workflow.ErrNotPendingApproval):
		return &APIError{Code: http.StatusUnprocessableEntity, Message: err.Error()}
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenRevoked):
		return &APIError{Code: http.StatusUnauthorized, Message: T(c, "error.unauthorized"), Detail: err.Error()}
	default:
		return &APIError{Code: http.StatusInternalServerError, Message: T(c, "error.internal_error"), Detail: err.Error()}
	}
}

// handleError 输出服务层错误
func handleError(c *gin.Context, err error) {
	apiErr := MapError(c, err)
	if apiErr.Code >= http.StatusInternalServerError {
		GetLogger().WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
	}
	writeAPIError(c, apiErr)
}

func writeAPIError(c *gin.Context, apiErr *APIError) {
	status := http.StatusInternalServerError
	if apiErr.Code >= 400 && apiErr.Code < 600 {
		status = apiErr.Code
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Detail:  apiErr.Detail,
		Reason:  apiErr.Reason,
		Data:    apiErr.Data,
	})
}

// badRequest 请求体或参数无法解析
func badRequest(c *gin.Context, err error) {
	writeAPIError(c, &APIError{Code: http.StatusBadRequest, Message: T(c, "error.bad_request"), Detail: err.Error()})
}
