package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 内部采购申请单
type Order struct {
	ID           string          `json:"id" gorm:"primaryKey;size:32"`
	OrderCode    string          `json:"order_code" gorm:"size:32;uniqueIndex;not null"`
	Title        string          `json:"title" gorm:"size:200;not null"`
	Description  string          `json:"description" gorm:"type:text"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(15,2);not null"`
	RequesterID  string          `json:"requester_id" gorm:"size:32;not null;index"`
	DepartmentID string          `json:"department_id" gorm:"size:32;index"`

	// 审批状态：CurrentApproverRole 为空当且仅当终态
	CurrentApproverRole *string `json:"current_approver_role" gorm:"size:32;index"`
	FinalStatus         string  `json:"final_status" gorm:"size:20;not null;default:pending"`

	// 交付信息（终态后仍可更新）
	DeliveredAt  *time.Time `json:"delivered_at"`
	DeliveryNote string     `json:"delivery_note" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Requester *Employee       `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	Approvals []OrderApproval `json:"approvals,omitempty" gorm:"foreignKey:OrderID"`
	Chain     []ApprovalEntry `json:"chain,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "oa_orders"
}

// 订单终态
const (
	OrderStatusPending  = "pending"
	OrderStatusApproved = "approved"
	OrderStatusRejected = "rejected"
)

// OrderApproval 审批分配记录：每个(审批人, 订单)一行，只流转不删除
type OrderApproval struct {
	ID         string     `json:"id" gorm:"primaryKey;size:32"`
	OrderID    string     `json:"order_id" gorm:"size:32;not null;index:idx_order_approval"`
	EmployeeID string     `json:"employee_id" gorm:"size:32;not null;index:idx_order_approval"`
	RoleID     string     `json:"role_id" gorm:"size:32;not null"`
	Status     string     `json:"status" gorm:"size:20;not null;default:pending"`
	Comment    string     `json:"comment" gorm:"type:text"`
	AssignedAt time.Time  `json:"assigned_at"`
	DecidedAt  *time.Time `json:"decided_at"`

	// 关联
	Employee *Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
}

func (OrderApproval) TableName() string {
	return "oa_order_approvals"
}

// 审批分配状态
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// ApprovalEntry 审批链条目：订单全部路由/决策事件的只追加记录
type ApprovalEntry struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	OrderID   string    `json:"order_id" gorm:"size:32;not null;index"`
	ActorID   string    `json:"actor_id" gorm:"size:32"`
	RoleID    string    `json:"role_id" gorm:"size:32"`
	Action    string    `json:"action" gorm:"size:20;not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (ApprovalEntry) TableName() string {
	return "oa_approval_entries"
}

// 审批链动作
const (
	ChainActionSelfApproved = "self_approved"
	ChainActionForwarded    = "forwarded"
	ChainActionApproved     = "approved"
	ChainActionRejected     = "rejected"
	ChainActionSuperseded   = "superseded"
)
