package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories OA仓库集合
type Repositories struct {
	Employee      *EmployeeRepository
	Order         *OrderRepository
	Vendor        *VendorRepository
	Company       *CompanyRepository
	Document      *DocumentRepository
	SalesContract *SalesContractRepository
	Revenue       *RevenueRepository
	Audit         *AuditRepository
	Notification  *NotificationRepository
}

// NewRepositories 创建OA仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Employee:      NewEmployeeRepository(db),
		Order:         NewOrderRepository(db),
		Vendor:        NewVendorRepository(db),
		Company:       NewCompanyRepository(db),
		Document:      NewDocumentRepository(db),
		SalesContract: NewSalesContractRepository(db),
		Revenue:       NewRevenueRepository(db),
		Audit:         NewAuditRepository(db),
		Notification:  NewNotificationRepository(db),
	}
}
