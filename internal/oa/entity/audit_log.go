package entity

import (
	"encoding/json"
	"time"
)

// 审计操作类型
const (
	AuditOpCreate = "CREATE"
	AuditOpUpdate = "UPDATE"
	AuditOpDelete = "DELETE"
)

// AuditRecord 审计日志公共字段：只写一次，之后只读
// OldData/NewData 为变更前后快照，CREATE 时 OldData 为空，DELETE 时 NewData 为空
type AuditRecord struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	Operation string          `json:"operation" gorm:"size:10;not null"`
	ActorID   string          `json:"actor_id" gorm:"size:32;not null;index"`
	RoleID    string          `json:"role_id" gorm:"size:32"`
	OldData   json.RawMessage `json:"old_data" gorm:"type:jsonb"`
	NewData   json.RawMessage `json:"new_data" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderAuditLog 订单审计日志
type OrderAuditLog struct {
	AuditRecord
	OrderID string `json:"order_id" gorm:"size:32;not null;index"`
}

func (OrderAuditLog) TableName() string {
	return "oa_order_audit_logs"
}

// DocumentAuditLog 其他合同审计日志
type DocumentAuditLog struct {
	AuditRecord
	DocumentID string `json:"document_id" gorm:"size:32;not null;index"`
}

func (DocumentAuditLog) TableName() string {
	return "oa_document_audit_logs"
}

// SalesContractAuditLog 销售合同审计日志
type SalesContractAuditLog struct {
	AuditRecord
	SalesContractID string `json:"sales_contract_id" gorm:"size:32;not null;index"`
}

func (SalesContractAuditLog) TableName() string {
	return "oa_sales_contract_audit_logs"
}
