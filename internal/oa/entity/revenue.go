package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueTotals 营收汇总字段（供应商/公司两表共用）
// ContractsTotalValue/ContractsCount 为派生字段，每次保存前由两类小计重算，不独立维护
type RevenueTotals struct {
	OtherContractsTotalValue decimal.Decimal `json:"other_contracts_total_value" gorm:"type:decimal(15,2);default:0"`
	OtherContractsCount      int             `json:"other_contracts_count" gorm:"default:0"`
	SalesContractsTotalValue decimal.Decimal `json:"sales_contracts_total_value" gorm:"type:decimal(15,2);default:0"`
	SalesContractsCount      int             `json:"sales_contracts_count" gorm:"default:0"`
	RevenueGenerated         decimal.Decimal `json:"revenue_generated" gorm:"type:decimal(15,2);default:0"`
	RevenueToBeGenerated     decimal.Decimal `json:"revenue_to_be_generated" gorm:"type:decimal(15,2);default:0"`
	ContractsTotalValue      decimal.Decimal `json:"contracts_total_value" gorm:"type:decimal(15,2);default:0"`
	ContractsCount           int             `json:"contracts_count" gorm:"default:0"`
}

// Recalc 重算派生合计
func (t *RevenueTotals) Recalc() {
	t.ContractsTotalValue = t.OtherContractsTotalValue.Add(t.SalesContractsTotalValue)
	t.ContractsCount = t.OtherContractsCount + t.SalesContractsCount
}

// Negative 任一小计为负说明增量维护出了错
func (t *RevenueTotals) Negative() bool {
	zero := decimal.Zero
	return t.OtherContractsTotalValue.LessThan(zero) ||
		t.SalesContractsTotalValue.LessThan(zero) ||
		t.RevenueGenerated.LessThan(zero) ||
		t.OtherContractsCount < 0 ||
		t.SalesContractsCount < 0
}

// VendorRevenueSummary 供应商营收汇总（每供应商一行，首次引用时惰性创建）
type VendorRevenueSummary struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	VendorID string `json:"vendor_id" gorm:"size:32;uniqueIndex;not null"`
	RevenueTotals
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VendorRevenueSummary) TableName() string {
	return "oa_vendor_revenue_summaries"
}

// CompanyRevenueSummary 公司营收汇总
type CompanyRevenueSummary struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	CompanyID string `json:"company_id" gorm:"size:32;uniqueIndex;not null"`
	RevenueTotals
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CompanyRevenueSummary) TableName() string {
	return "oa_company_revenue_summaries"
}
