package handler

import (
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/gin-gonic/gin"
)

// SalesContractHandler 销售合同处理器
type SalesContractHandler struct {
	svc    *service.SalesContractService
	actors *actorResolver
}

func NewSalesContractHandler(svc *service.SalesContractService, actors *actorResolver) *SalesContractHandler {
	return &SalesContractHandler{svc: svc, actors: actors}
}

// List 销售合同列表
// GET /api/v1/oa/sales-contracts?vendor_id=xxx&company_id=xxx&search=xxx
func (h *SalesContractHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"vendor_id":  c.Query("vendor_id"),
		"company_id": c.Query("company_id"),
		"search":     c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取销售合同列表失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}

// Get 销售合同详情
// GET /api/v1/oa/sales-contracts/:id
func (h *SalesContractHandler) Get(c *gin.Context) {
	sc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "销售合同不存在")
		return
	}
	Success(c, sc)
}

// Create 创建销售合同
// POST /api/v1/oa/sales-contracts
func (h *SalesContractHandler) Create(c *gin.Context) {
	var req service.CreateSalesContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	sc, err := h.svc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Created(c, sc)
}

// Update 更新销售合同
// PUT /api/v1/oa/sales-contracts/:id
func (h *SalesContractHandler) Update(c *gin.Context) {
	var req service.UpdateSalesContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	sc, err := h.svc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, sc)
}

// Delete 删除销售合同（冲回汇总贡献）
// DELETE /api/v1/oa/sales-contracts/:id
func (h *SalesContractHandler) Delete(c *gin.Context) {
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
