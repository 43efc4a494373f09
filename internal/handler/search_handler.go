package handler

import (
	"edu-archive-go/internal/service"
	"edu-archive-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search 是处理全文检索请求的 Gin 处理函数。q 为空时只按过滤条件列出命中。
func (h *SearchHandler) Search(c *gin.Context) {
	req := service.SearchRequest{
		Query:  c.Query("q"),
		Limit:  intQuery(c, "limit"),
		Offset: intQuery(c, "offset"),
	}
	var err error
	if req.CategoryID, err = uintQuery(c, "category_id"); err != nil {
		badRequest(c, "无效的 category_id")
		return
	}
	if req.PeriodID, err = uintQuery(c, "period_id"); err != nil {
		badRequest(c, "无效的 period_id")
		return
	}
	if req.TagID, err = uintQuery(c, "tag_id"); err != nil {
		badRequest(c, "无效的 tag_id")
		return
	}
	log.Infof("[SearchHandler] 收到搜索请求, q: %s", req.Query)

	resp, err := h.searchService.Search(c.Request.Context(), req)
	if err != nil {
		fail(c, "SearchHandler", err)
		return
	}
	ok(c, resp)
}
