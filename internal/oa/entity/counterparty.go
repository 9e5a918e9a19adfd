package entity

import "time"

// Vendor 供应商
type Vendor struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	ShortName string    `json:"short_name" gorm:"size:50"`
	Status    string    `json:"status" gorm:"size:20;default:active"`
	Country   string    `json:"country" gorm:"size:50"`
	City      string    `json:"city" gorm:"size:50"`
	Address   string    `json:"address" gorm:"size:500"`

	// 付款信息
	BankName     string `json:"bank_name" gorm:"size:200"`
	BankAccount  string `json:"bank_account" gorm:"size:50"`
	TaxID        string `json:"tax_id" gorm:"size:50"`
	PaymentTerms string `json:"payment_terms" gorm:"size:100"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`
}

func (Vendor) TableName() string {
	return "oa_vendors"
}

// Company 合作公司
type Company struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Status    string    `json:"status" gorm:"size:20;default:active"`
	Country   string    `json:"country" gorm:"size:50"`
	Address   string    `json:"address" gorm:"size:500"`
	TaxID     string    `json:"tax_id" gorm:"size:50"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`
}

func (Company) TableName() string {
	return "oa_companies"
}

// CounterpartyKind 合同对手方类型（有限变体的标签联合）
type CounterpartyKind string

const (
	CounterpartyVendor  CounterpartyKind = "vendor"
	CounterpartyCompany CounterpartyKind = "company"
)

// CounterpartyRef 对手方引用：kind + id，只引用不持有
type CounterpartyRef struct {
	Kind CounterpartyKind `json:"kind"`
	ID   string           `json:"id"`
}
