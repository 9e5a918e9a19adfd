package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/gin-gonic/gin"
)

// Handlers OA处理器集合
type Handlers struct {
	Order        *OrderHandler
	Document     *DocumentHandler
	SalesCon     *SalesContractHandler
	Vendor       *VendorHandler
	Company      *CompanyHandler
	Notification *NotificationHandler
}

// NewHandlers 创建OA处理器集合
func NewHandlers(
	approvalSvc *service.ApprovalService,
	documentSvc *service.DocumentService,
	salesConSvc *service.SalesContractService,
	counterpartySvc *service.CounterpartyService,
	auditRepo *repository.AuditRepository,
	notifyRepo *repository.NotificationRepository,
	employeeRepo *repository.EmployeeRepository,
) *Handlers {
	actors := &actorResolver{employeeRepo: employeeRepo}
	return &Handlers{
		Order:        NewOrderHandler(approvalSvc, auditRepo, actors),
		Document:     NewDocumentHandler(documentSvc, actors),
		SalesCon:     NewSalesContractHandler(salesConSvc, actors),
		Vendor:       NewVendorHandler(counterpartySvc, actors),
		Company:      NewCompanyHandler(counterpartySvc, actors),
		Notification: NewNotificationHandler(notifyRepo),
	}
}

// actorResolver 把JWT里的user_id解析成带角色/部门的操作者上下文
type actorResolver struct {
	employeeRepo *repository.EmployeeRepository
}

// Resolve 查找当前员工并构造操作者上下文，失败时已写响应
func (r *actorResolver) Resolve(c *gin.Context) (service.ActorContext, bool) {
	userID := GetUserID(c)
	if userID == "" {
		Error(c, 40100, "missing user identity")
		return service.ActorContext{}, false
	}

	emp, err := r.employeeRepo.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Error(c, 40100, "employee not found")
			return service.ActorContext{}, false
		}
		InternalError(c, "查询员工信息失败: "+err.Error())
		return service.ActorContext{}, false
	}
	if emp.Status != entity.EmployeeStatusActive {
		Forbidden(c, "employee is inactive")
		return service.ActorContext{}, false
	}

	return service.ActorContext{
		EmployeeID:   emp.ID,
		RoleID:       emp.RoleID,
		DepartmentID: emp.DepartmentID,
	}, true
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError 把服务层哨兵错误映射为响应码
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		Forbidden(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrStaleStage):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrRoutingTargetMissing):
		Error(c, 40901, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listOf(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
