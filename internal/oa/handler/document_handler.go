package handler

import (
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/gin-gonic/gin"
)

// DocumentHandler 合同文档处理器
type DocumentHandler struct {
	svc    *service.DocumentService
	actors *actorResolver
}

func NewDocumentHandler(svc *service.DocumentService, actors *actorResolver) *DocumentHandler {
	return &DocumentHandler{svc: svc, actors: actors}
}

// List 合同列表
// GET /api/v1/oa/documents?type=xxx&vendor_id=xxx&company_id=xxx&search=xxx
func (h *DocumentHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"type":       c.Query("type"),
		"vendor_id":  c.Query("vendor_id"),
		"company_id": c.Query("company_id"),
		"search":     c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取合同列表失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}

// Get 合同详情
// GET /api/v1/oa/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "合同不存在")
		return
	}
	Success(c, doc)
}

// Create 创建合同
// POST /api/v1/oa/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var req service.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	doc, err := h.svc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Created(c, doc)
}

// Update 更新合同
// PUT /api/v1/oa/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	var req service.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	doc, err := h.svc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, doc)
}

// Delete 删除合同（冲回汇总贡献）
// DELETE /api/v1/oa/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, nil)
}
