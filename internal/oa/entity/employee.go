package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role 角色（审批链节点按名称查找，不写死ID）
type Role struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	Name          string          `json:"name" gorm:"size:50;uniqueIndex;not null"` // direct_manager/monetary/ceo/staff等
	DisplayName   string          `json:"display_name" gorm:"size:100"`
	ParentID      *string         `json:"parent_id" gorm:"size:32"`
	ApprovalLimit decimal.Decimal `json:"approval_limit" gorm:"type:decimal(15,2);default:0"` // 自批额度
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Role) TableName() string {
	return "oa_roles"
}

// 内置审批链角色名
const (
	RoleNameDirectManager = "direct_manager"
	RoleNameMonetary      = "monetary"
	RoleNameCEO           = "ceo"
	RoleNameStaff         = "staff"
)

// Department 部门
type Department struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Department) TableName() string {
	return "oa_departments"
}

// Employee 员工
type Employee struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Name         string    `json:"name" gorm:"size:100;not null"`
	Email        string    `json:"email" gorm:"size:200;uniqueIndex"`
	RoleID       string    `json:"role_id" gorm:"size:32;not null;index"`
	DepartmentID string    `json:"department_id" gorm:"size:32;index"`
	Status       string    `json:"status" gorm:"size:20;default:active"`
	// 通知类型黑名单 [typeID...]，命中则跳过投递
	NotifyOptOuts JSONBArray `json:"notify_opt_outs" gorm:"type:jsonb"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// 关联
	Role       *Role       `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

func (Employee) TableName() string {
	return "oa_employees"
}

// 员工状态
const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"
)
