// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"edu-archive-go/internal/service"
	"edu-archive-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// respond 写出统一的 {code, message, data} 响应。
func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": data})
}

func ok(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, "success", data)
}

// statusOf 把业务错误映射为 HTTP 状态码。
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrPeriodNotFound),
		errors.Is(err, service.ErrTagNotFound),
		errors.Is(err, service.ErrFileMissing):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCategoryInUse),
		errors.Is(err, service.ErrCategoryHasChildren),
		errors.Is(err, service.ErrCategoryCycle),
		errors.Is(err, service.ErrDuplicateSlug),
		errors.Is(err, service.ErrPeriodInUse),
		errors.Is(err, service.ErrPeriodExists),
		errors.Is(err, service.ErrDuplicateTag):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidClassification),
		errors.Is(err, service.ErrInvalidPeriod),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrSearchUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail 根据错误类型写出响应。5xx 错误只返回通用信息，细节写入日志。
func fail(c *gin.Context, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("[%s] 处理失败: %v", op, err)
		message := "服务器内部错误"
		if status == http.StatusServiceUnavailable {
			message = service.ErrSearchUnavailable.Error()
		}
		respond(c, status, message, nil)
		return
	}
	log.Warnf("[%s] 请求被拒绝: %v", op, err)
	respond(c, status, err.Error(), nil)
}

func badRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, message, nil)
}

// idParam 解析路径参数 :id。
func idParam(c *gin.Context) (uint, bool) {
	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		badRequest(c, "无效的 ID")
		return 0, false
	}
	return id, true
}

// uintQuery 解析可选的无符号整数查询参数，缺省为 0。
func uintQuery(c *gin.Context, key string) (uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	return uint(v), err
}

func intQuery(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
