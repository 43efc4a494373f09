// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"edu-archive-go/internal/middleware"
	"edu-archive-go/internal/repository"
	"edu-archive-go/internal/service"
	"edu-archive-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理文档的上传、编辑、删除、恢复、查看与下载。
type DocumentHandler struct {
	documentService service.DocumentService
	maxUploadBytes  int64
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, maxUploadBytes: maxUploadBytes}
}

// UpdateDocumentRequest 定义了编辑文档 API 的请求体结构。
// Tags 为逗号分隔的标签列表，缺省时保持原有标签。
type UpdateDocumentRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	CategoryID      uint    `json:"categoryId"`
	PeriodID        uint    `json:"periodId"`
	CorrespondentID *uint   `json:"correspondentId"`
	Tags            *string `json:"tags"`
}

// Upload 处理 multipart 文件上传。
func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		// 预留 1MB 给其余表单字段
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warnf("[DocumentHandler] 读取上传文件失败: %v", err)
		badRequest(c, "缺少文件或文件过大")
		return
	}

	categoryID, err1 := strconv.ParseUint(c.PostForm("category_id"), 10, 64)
	periodID, err2 := strconv.ParseUint(c.PostForm("period_id"), 10, 64)
	if err1 != nil || err2 != nil {
		badRequest(c, "category_id 与 period_id 为必填项")
		return
	}
	correspondentID, err := optionalUint(c.PostForm("correspondent_id"))
	if err != nil {
		badRequest(c, "无效的 correspondent_id")
		return
	}
	templateID, err := optionalUint(c.PostForm("template_id"))
	if err != nil {
		badRequest(c, "无效的 template_id")
		return
	}
	var metadata map[string]interface{}
	if raw := c.PostForm("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			badRequest(c, "metadata 必须是 JSON 对象")
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		fail(c, "DocumentHandler", err)
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), middleware.CurrentActor(c), service.UploadInput{
		File:             file,
		OriginalFilename: fileHeader.Filename,
		Title:            c.PostForm("title"),
		Description:      c.PostForm("description"),
		CategoryID:       uint(categoryID),
		PeriodID:         uint(periodID),
		CorrespondentID:  correspondentID,
		TemplateID:       templateID,
		Tags:             service.ParseTagNames(c.PostForm("tags")),
		Metadata:         metadata,
	})
	if err != nil {
		fail(c, "DocumentHandler", err)
		return
	}
	respond(c, http.StatusCreated, "success", doc)
}

// List 列出未删除的文档，支持分类、学期、标签与关键字过滤。
func (h *DocumentHandler) List(c *gin.Context) {
	filter := repository.DocumentFilter{
		Query:  c.Query("q"),
		Limit:  intQuery(c, "limit"),
		Offset: intQuery(c, "offset"),
	}
	var err error
	if filter.CategoryID, err = uintQuery(c, "category_id"); err != nil {
		badRequest(c, "无效的 category_id")
		return
	}
	if filter.PeriodID, err = uintQuery(c, "period_id"); err != nil {
		badRequest(c, "无效的 period_id")
		return
	}
	if filter.TagID, err = uintQuery(c, "tag_id"); err != nil {
		badRequest(c, "无效的 tag_id")
		return
	}
	page, err := h.documentService.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, "DocumentHandler", err)
		return
	}
	ok(c, page)
}

// ListTrash 列出回收站中的文档。
func (h *DocumentHandler) ListTrash(c *gin.Context) {
	page, err := h.documentService.ListTrash(c.Request.Context(), intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		fail(c, "DocumentHandler", err)
		return
	}
	ok(c, page)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	doc, err := h.documentService.Get(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		fail(c, "DocumentHandler", err)
		return
	}
	ok(c, doc)
}

// Download 以附件形式返回原始文件，文件名使用上传时的原始文件名。
func (h *DocumentHandler) Download(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	doc, err := h.documentService.Open(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		fail(c, "DocumentHandler", err)
		return
	}
	c.FileAttachment(doc.FilePath, doc.OriginalFilename)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载")
		return
	}
	in := service.EditInput{
		Title:           req.Title,
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		PeriodID:        req.PeriodID,
		CorrespondentID: req.CorrespondentID,
	}
	if req.Tags != nil {
		in.Tags = service.ParseTagNames(*req.Tags)
	}
	doc, err := h.documentService.Edit(c.Request.Context(), middleware.CurrentActor(c), id, in)
	if err != nil {
		fail(c, "DocumentHandler", err)
		return
	}
	ok(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	if err := h.documentService.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		fail(c, "DocumentHandler", err)
		return
	}
	ok(c, nil)
}

func (h *DocumentHandler) Restore(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	doc, err := h.documentService.Restore(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		fail(c, "DocumentHandler", err)
		return
	}
	ok(c, doc)
}

func optionalUint(raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	id := uint(v)
	return &id, nil
}
