package handler

import (
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/gin-gonic/gin"
)

// VendorHandler 供应商处理器
type VendorHandler struct {
	svc    *service.CounterpartyService
	actors *actorResolver
}

func NewVendorHandler(svc *service.CounterpartyService, actors *actorResolver) *VendorHandler {
	return &VendorHandler{svc: svc, actors: actors}
}

// List 供应商列表
// GET /api/v1/oa/vendors?status=xxx&search=xxx
func (h *VendorHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status": c.Query("status"),
		"search": c.Query("search"),
	}

	items, total, err := h.svc.ListVendors(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取供应商列表失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}

// Get 供应商详情
// GET /api/v1/oa/vendors/:id
func (h *VendorHandler) Get(c *gin.Context) {
	vendor, err := h.svc.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "供应商不存在")
		return
	}
	Success(c, vendor)
}

// Create 创建供应商
// POST /api/v1/oa/vendors
func (h *VendorHandler) Create(c *gin.Context) {
	var req service.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	vendor, err := h.svc.CreateVendor(c.Request.Context(), actor, &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Created(c, vendor)
}

// Update 更新供应商
// PUT /api/v1/oa/vendors/:id
func (h *VendorHandler) Update(c *gin.Context) {
	var req service.UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	vendor, err := h.svc.UpdateVendor(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, vendor)
}

// Revenue 供应商营收汇总
// GET /api/v1/oa/vendors/:id/revenue
func (h *VendorHandler) Revenue(c *gin.Context) {
	summary, err := h.svc.VendorRevenue(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, summary)
}
