package entity

import "time"

// 通知目标选择器类型
const (
	NotifyTargetEmployees = "employee_set" // Targets = 员工ID列表
	NotifyTargetRoles     = "role_set"     // Targets = 角色ID列表
	NotifyTargetRoleDept  = "role_dept"    // Targets = 角色ID列表，限定 DepartmentID
)

// 通知类型
const (
	NotifyTypeOrderPending  = 1 // 有新订单待审批
	NotifyTypeOrderApproved = 2 // 订单已通过
	NotifyTypeOrderRejected = 3 // 订单被驳回
	NotifyTypeOrderAdvanced = 4 // 订单进入下一审批阶段
)

// 通知投递状态
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification 通知发件箱：与业务变更同事务落库，提交后异步投递
// 重复投递可接受，投递失败只记录不回滚业务
type Notification struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	TargetKind   string     `json:"target_kind" gorm:"size:20;not null"`
	Targets      JSONBArray `json:"targets" gorm:"type:jsonb;not null"`
	DepartmentID string     `json:"department_id" gorm:"size:32"`
	TypeID       int        `json:"type_id" gorm:"not null"`
	Message      string     `json:"message" gorm:"type:text;not null"`
	OrderID      string     `json:"order_id" gorm:"size:32;index"`
	Status       string     `json:"status" gorm:"size:20;not null;default:pending;index"`
	Error        string     `json:"error" gorm:"size:500"`
	SentAt       *time.Time `json:"sent_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (Notification) TableName() string {
	return "oa_notifications"
}

// NotificationDelivery 站内信投递记录（按员工展开）
type NotificationDelivery struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	NotificationID string     `json:"notification_id" gorm:"size:32;not null;index"`
	EmployeeID     string     `json:"employee_id" gorm:"size:32;not null;index"`
	TypeID         int        `json:"type_id" gorm:"not null"`
	Message        string     `json:"message" gorm:"type:text"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (NotificationDelivery) TableName() string {
	return "oa_notification_deliveries"
}
