package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractKind 合同类别
type ContractKind string

const (
	ContractKindDocument ContractKind = "document"
	ContractKindSales    ContractKind = "sales"
)

// Document 其他合同（非销售类）
// ModifiedValue 永远在持久化前由 ContractValue + ChangeOrder 重算，调用方不得直接写入
type Document struct {
	ID    string `json:"id" gorm:"primaryKey;size:32"`
	Code  string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Title string `json:"title" gorm:"size:200;not null"`
	Type  string `json:"type" gorm:"size:50"`

	ContractValue decimal.Decimal `json:"contract_value" gorm:"type:decimal(15,2);not null"`
	ChangeOrder   decimal.Decimal `json:"change_order" gorm:"type:decimal(15,2);default:0"`
	ModifiedValue decimal.Decimal `json:"modified_value" gorm:"type:decimal(15,2);not null"`

	VendorID  *string `json:"vendor_id" gorm:"size:32;index"`
	CompanyID *string `json:"company_id" gorm:"size:32;index"`

	// 附件（外部上传服务提供URL，仅存引用）
	AttachmentName string `json:"attachment_name" gorm:"size:200"`
	AttachmentURL  string `json:"attachment_url" gorm:"size:500"`

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Vendor  *Vendor  `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
}

func (Document) TableName() string {
	return "oa_documents"
}

// Recalc 重算派生值
func (d *Document) Recalc() {
	d.ModifiedValue = d.ContractValue.Add(d.ChangeOrder)
}

// Counterparties 返回引用的对手方（0/1/2个）
func (d *Document) Counterparties() []CounterpartyRef {
	return counterpartyRefs(d.VendorID, d.CompanyID)
}

// SalesContract 销售合同
type SalesContract struct {
	ID    string `json:"id" gorm:"primaryKey;size:32"`
	Code  string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Title string `json:"title" gorm:"size:200;not null"`

	ContractValue decimal.Decimal `json:"contract_value" gorm:"type:decimal(15,2);not null"`
	Adjustment    decimal.Decimal `json:"adjustment" gorm:"type:decimal(15,2);default:0"`
	ModifiedValue decimal.Decimal `json:"modified_value" gorm:"type:decimal(15,2);not null"`
	TotalPaid     decimal.Decimal `json:"total_paid" gorm:"type:decimal(15,2);default:0"`
	DuePayment    decimal.Decimal `json:"due_payment" gorm:"type:decimal(15,2);default:0"`

	VendorID  *string `json:"vendor_id" gorm:"size:32;index"`
	CompanyID *string `json:"company_id" gorm:"size:32;index"`

	AttachmentName string `json:"attachment_name" gorm:"size:200"`
	AttachmentURL  string `json:"attachment_url" gorm:"size:500"`

	SignedAt *time.Time `json:"signed_at"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Vendor  *Vendor  `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
}

func (SalesContract) TableName() string {
	return "oa_sales_contracts"
}

// Recalc 重算派生值：modified_value 与 due_payment
func (sc *SalesContract) Recalc() {
	sc.ModifiedValue = sc.ContractValue.Add(sc.Adjustment)
	sc.DuePayment = sc.ModifiedValue.Sub(sc.TotalPaid)
}

// Counterparties 返回引用的对手方（0/1/2个）
func (sc *SalesContract) Counterparties() []CounterpartyRef {
	return counterpartyRefs(sc.VendorID, sc.CompanyID)
}

func counterpartyRefs(vendorID, companyID *string) []CounterpartyRef {
	var refs []CounterpartyRef
	if vendorID != nil && *vendorID != "" {
		refs = append(refs, CounterpartyRef{Kind: CounterpartyVendor, ID: *vendorID})
	}
	if companyID != nil && *companyID != "" {
		refs = append(refs, CounterpartyRef{Kind: CounterpartyCompany, ID: *companyID})
	}
	return refs
}
