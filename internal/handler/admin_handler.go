// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"edu-archive-go/internal/middleware"
	"edu-archive-go/internal/service"
	"edu-archive-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理分类、学期与标签管理的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// CategoryRequest 定义了创建/更新分类 API 的请求体结构。
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parentId"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    *bool  `json:"isActive"`
}

func (r CategoryRequest) input() service.CategoryInput {
	return service.CategoryInput{
		Name:        r.Name,
		Description: r.Description,
		ParentID:    r.ParentID,
		SortOrder:   r.SortOrder,
		IsActive:    r.IsActive,
	}
}

// PeriodRequest 定义了创建学期 API 的请求体结构。
type PeriodRequest struct {
	YearStart int    `json:"yearStart" binding:"required"`
	YearEnd   int    `json:"yearEnd" binding:"required"`
	Semester  string `json:"semester" binding:"required"`
}

// TagRequest 定义了创建/更新标签 API 的请求体结构。
type TagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateCategory 处理创建分类的请求。
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		badRequest(c, "无效的请求负载")
		return
	}
	category, err := h.adminService.CreateCategory(c.Request.Context(), req.input())
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	log.Infof("Admin user '%s' created category '%s'", middleware.CurrentActor(c).Username, category.Slug)
	respond(c, http.StatusCreated, "success", category)
}

func (h *AdminHandler) ListCategories(c *gin.Context) {
	categories, err := h.adminService.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	ok(c, categories)
}

// GetCategoryTree 返回分类树。
func (h *AdminHandler) GetCategoryTree(c *gin.Context) {
	tree, err := h.adminService.GetCategoryTree(c.Request.Context())
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	ok(c, tree)
}

func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}
	category, err := h.adminService.UpdateCategory(c.Request.Context(), id, req.input())
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	ok(c, category)
}

func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	if err := h.adminService.DeleteCategory(c.Request.Context(), id); err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	log.Infof("Admin user '%s' deleted category %d", middleware.CurrentActor(c).Username, id)
	ok(c, nil)
}

// CreatePeriod 处理创建学期的请求。
func (h *AdminHandler) CreatePeriod(c *gin.Context) {
	var req PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}
	period, err := h.adminService.CreatePeriod(c.Request.Context(), service.PeriodInput{
		YearStart: req.YearStart,
		YearEnd:   req.YearEnd,
		Semester:  req.Semester,
	})
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	respond(c, http.StatusCreated, "success", period)
}

func (h *AdminHandler) ListPeriods(c *gin.Context) {
	periods, err := h.adminService.ListPeriods(c.Request.Context())
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	ok(c, periods)
}

func (h *AdminHandler) TogglePeriod(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	period, err := h.adminService.TogglePeriod(c.Request.Context(), id)
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	ok(c, period)
}

func (h *AdminHandler) DeletePeriod(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	if err := h.adminService.DeletePeriod(c.Request.Context(), id); err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	ok(c, nil)
}

func (h *AdminHandler) CreateTag(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}
	tag, err := h.adminService.CreateTag(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	respond(c, http.StatusCreated, "success", tag)
}

func (h *AdminHandler) ListTags(c *gin.Context) {
	tags, err := h.adminService.ListTags(c.Request.Context())
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	ok(c, tags)
}

func (h *AdminHandler) UpdateTag(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}
	tag, err := h.adminService.UpdateTag(c.Request.Context(), id, req.Name, req.Color)
	if err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	ok(c, tag)
}

func (h *AdminHandler) DeleteTag(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	if err := h.adminService.DeleteTag(c.Request.Context(), id); err != nil {
		fail(c, "AdminHandler", err)
		return
	}
	ok(c, nil)
}
