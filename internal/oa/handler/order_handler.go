package handler

import (
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler 订单审批处理器
type OrderHandler struct {
	svc       *service.ApprovalService
	auditRepo *repository.AuditRepository
	actors    *actorResolver
}

func NewOrderHandler(svc *service.ApprovalService, auditRepo *repository.AuditRepository, actors *actorResolver) *OrderHandler {
	return &OrderHandler{svc: svc, auditRepo: auditRepo, actors: actors}
}

// List 订单列表
// GET /api/v1/oa/orders?requester_id=xxx&status=xxx&search=xxx
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"requester_id": c.Query("requester_id"),
		"status":       c.Query("status"),
		"search":       c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}

// Get 订单详情（含审批记录与审批链）
// GET /api/v1/oa/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "订单不存在")
		return
	}
	Success(c, order)
}

// ListPending 等待我审批的订单
// GET /api/v1/oa/orders/pending
func (h *OrderHandler) ListPending(c *gin.Context) {
	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListPendingFor(c.Request.Context(), actor.EmployeeID, page, pageSize)
	if err != nil {
		InternalError(c, "获取待审批订单失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}

// Create 创建订单（创建即完成初始路由）
// POST /api/v1/oa/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), actor, &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Created(c, order)
}

// Decide 审批决策
// POST /api/v1/oa/orders/:id/decide
func (h *OrderHandler) Decide(c *gin.Context) {
	var req service.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	order, err := h.svc.Decide(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, order)
}

// Audit 订单审计日志（仅管理员，路由上挂 RequireRole 守卫）
// GET /api/v1/oa/orders/:id/audit
func (h *OrderHandler) Audit(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.auditRepo.FindByOrder(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		InternalError(c, "获取审计日志失败: "+err.Error())
		return
	}
	Success(c, listOf(items, page, pageSize, total))
}

// UpdateDelivery 更新交付信息（仅终态通过的订单）
// PUT /api/v1/oa/orders/:id/delivery
func (h *OrderHandler) UpdateDelivery(c *gin.Context) {
	var req service.UpdateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := h.actors.Resolve(c)
	if !ok {
		return
	}

	order, err := h.svc.UpdateDelivery(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, order)
}
