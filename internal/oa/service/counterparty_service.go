package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/google/uuid"
)

// CounterpartyService 供应商/合作公司档案与营收汇总查询
// 档案本身不参与汇总增量，汇总行只被合同生命周期事务修改
type CounterpartyService struct {
	vendorRepo  *repository.VendorRepository
	companyRepo *repository.CompanyRepository
	revenueRepo *repository.RevenueRepository
}

func NewCounterpartyService(
	vendorRepo *repository.VendorRepository,
	companyRepo *repository.CompanyRepository,
	revenueRepo *repository.RevenueRepository,
) *CounterpartyService {
	return &CounterpartyService{
		vendorRepo:  vendorRepo,
		companyRepo: companyRepo,
		revenueRepo: revenueRepo,
	}
}

// CreateVendorRequest 创建供应商请求
type CreateVendorRequest struct {
	Name         string `json:"name" binding:"required"`
	ShortName    string `json:"short_name"`
	Country      string `json:"country"`
	City         string `json:"city"`
	Address      string `json:"address"`
	BankName     string `json:"bank_name"`
	BankAccount  string `json:"bank_account"`
	TaxID        string `json:"tax_id"`
	PaymentTerms string `json:"payment_terms"`
	Notes        string `json:"notes"`
}

// UpdateVendorRequest 更新供应商请求
type UpdateVendorRequest struct {
	Name         *string `json:"name"`
	ShortName    *string `json:"short_name"`
	Status       *string `json:"status"`
	Country      *string `json:"country"`
	City         *string `json:"city"`
	Address      *string `json:"address"`
	BankName     *string `json:"bank_name"`
	BankAccount  *string `json:"bank_account"`
	TaxID        *string `json:"tax_id"`
	PaymentTerms *string `json:"payment_terms"`
	Notes        *string `json:"notes"`
}

// ListVendors 获取供应商列表
func (s *CounterpartyService) ListVendors(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Vendor, int64, error) {
	return s.vendorRepo.FindAll(ctx, page, pageSize, filters)
}

// GetVendor 获取供应商详情
func (s *CounterpartyService) GetVendor(ctx context.Context, id string) (*entity.Vendor, error) {
	return s.vendorRepo.FindByID(ctx, id)
}

// CreateVendor 创建供应商
func (s *CounterpartyService) CreateVendor(ctx context.Context, actor ActorContext, req *CreateVendorRequest) (*entity.Vendor, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	code, err := s.vendorRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成供应商编码失败: %w", err)
	}

	vendor := &entity.Vendor{
		ID:           uuid.New().String()[:32],
		Code:         code,
		Name:         req.Name,
		ShortName:    req.ShortName,
		Status:       "active",
		Country:      req.Country,
		City:         req.City,
		Address:      req.Address,
		BankName:     req.BankName,
		BankAccount:  req.BankAccount,
		TaxID:        req.TaxID,
		PaymentTerms: req.PaymentTerms,
		CreatedBy:    actor.EmployeeID,
		Notes:        req.Notes,
	}
	if err := s.vendorRepo.Create(ctx, vendor); err != nil {
		return nil, fmt.Errorf("创建供应商失败: %w", err)
	}
	return vendor, nil
}

// UpdateVendor 更新供应商档案
func (s *CounterpartyService) UpdateVendor(ctx context.Context, id string, req *UpdateVendorRequest) (*entity.Vendor, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		vendor.Name = *req.Name
	}
	if req.ShortName != nil {
		vendor.ShortName = *req.ShortName
	}
	if req.Status != nil {
		vendor.Status = *req.Status
	}
	if req.Country != nil {
		vendor.Country = *req.Country
	}
	if req.City != nil {
		vendor.City = *req.City
	}
	if req.Address != nil {
		vendor.Address = *req.Address
	}
	if req.BankName != nil {
		vendor.BankName = *req.BankName
	}
	if req.BankAccount != nil {
		vendor.BankAccount = *req.BankAccount
	}
	if req.TaxID != nil {
		vendor.TaxID = *req.TaxID
	}
	if req.PaymentTerms != nil {
		vendor.PaymentTerms = *req.PaymentTerms
	}
	if req.Notes != nil {
		vendor.Notes = *req.Notes
	}

	if err := s.vendorRepo.Update(ctx, vendor); err != nil {
		return nil, fmt.Errorf("更新供应商失败: %w", err)
	}
	return vendor, nil
}

// CreateCompanyRequest 创建合作公司请求
type CreateCompanyRequest struct {
	Name    string `json:"name" binding:"required"`
	Country string `json:"country"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
	Notes   string `json:"notes"`
}

// UpdateCompanyRequest 更新合作公司请求
type UpdateCompanyRequest struct {
	Name    *string `json:"name"`
	Status  *string `json:"status"`
	Country *string `json:"country"`
	Address *string `json:"address"`
	TaxID   *string `json:"tax_id"`
	Notes   *string `json:"notes"`
}

// ListCompanies 获取公司列表
func (s *CounterpartyService) ListCompanies(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Company, int64, error) {
	return s.companyRepo.FindAll(ctx, page, pageSize, filters)
}

// GetCompany 获取公司详情
func (s *CounterpartyService) GetCompany(ctx context.Context, id string) (*entity.Company, error) {
	return s.companyRepo.FindByID(ctx, id)
}

// CreateCompany 创建合作公司
func (s *CounterpartyService) CreateCompany(ctx context.Context, actor ActorContext, req *CreateCompanyRequest) (*entity.Company, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	code, err := s.companyRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成公司编码失败: %w", err)
	}

	company := &entity.Company{
		ID:        uuid.New().String()[:32],
		Code:      code,
		Name:      req.Name,
		Status:    "active",
		Country:   req.Country,
		Address:   req.Address,
		TaxID:     req.TaxID,
		CreatedBy: actor.EmployeeID,
		Notes:     req.Notes,
	}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("创建公司失败: %w", err)
	}
	return company, nil
}

// UpdateCompany 更新合作公司档案
func (s *CounterpartyService) UpdateCompany(ctx context.Context, id string, req *UpdateCompanyRequest) (*entity.Company, error) {
	company, err := s.companyRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.Status != nil {
		company.Status = *req.Status
	}
	if req.Country != nil {
		company.Country = *req.Country
	}
	if req.Address != nil {
		company.Address = *req.Address
	}
	if req.TaxID != nil {
		company.TaxID = *req.TaxID
	}
	if req.Notes != nil {
		company.Notes = *req.Notes
	}

	if err := s.companyRepo.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("更新公司失败: %w", err)
	}
	return company, nil
}

// VendorRevenue 查询供应商营收汇总，尚无合同时返回零值汇总
func (s *CounterpartyService) VendorRevenue(ctx context.Context, vendorID string) (*entity.VendorRevenueSummary, error) {
	if _, err := s.vendorRepo.FindByID(ctx, vendorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	summary, err := s.revenueRepo.FindByVendorID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &entity.VendorRevenueSummary{VendorID: vendorID}, nil
		}
		return nil, err
	}
	return summary, nil
}

// CompanyRevenue 查询公司营收汇总，尚无合同时返回零值汇总
func (s *CounterpartyService) CompanyRevenue(ctx context.Context, companyID string) (*entity.CompanyRevenueSummary, error) {
	if _, err := s.companyRepo.FindByID(ctx, companyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	summary, err := s.revenueRepo.FindByCompanyID(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &entity.CompanyRevenueSummary{CompanyID: companyID}, nil
		}
		return nil, err
	}
	return summary, nil
}
