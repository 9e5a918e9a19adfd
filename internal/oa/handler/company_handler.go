package handler

import (
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/gin-gonic/gin"
)

// CompanyHandler 合作公司处理器
type CompanyHandler struct {
	svc    *service.CounterpartyService
	actors *actorResolver
}

func NewCompanyHandler(svc *service.CounterpartyService, actors *actorResolver) *CompanyHandler {
	return &CompanyHandler{svc: svc, actors: actors}
}

// List 公司列表
// GET /api/v1/oa/companies?status=xxx&search=xxx
func (h *CompanyHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status": c.Query("status"),
		"search": c.Query("search"),
	}

	items, total, err := h.svc.ListCompanies(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取公司列表失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}

// Get 公司详情
// GET /api/v1/oa/companies/:id
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.svc.GetCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "公司不存在")
		return
	}
	Success(c, company)
}

// Create 创建公司
// POST /api/v1/oa/companies
func (h *CompanyHandler) Create(c *gin.Context) {
	var req service.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	company, err := h.svc.CreateCompany(c.Request.Context(), actor, &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Created(c, company)
}

// Update 更新公司
// PUT /api/v1/oa/companies/:id
func (h *CompanyHandler) Update(c *gin.Context) {
	var req service.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	company, err := h.svc.UpdateCompany(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, company)
}

// Revenue 公司营收汇总
// GET /api/v1/oa/companies/:id/revenue
func (h *CompanyHandler) Revenue(c *gin.Context) {
	summary, err := h.svc.CompanyRevenue(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, summary)
}
