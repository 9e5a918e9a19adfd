package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesContractService 销售合同生命周期
// 与其他合同同构，额外维护 revenue_generated / revenue_to_be_generated
type SalesContractService struct {
	scRepo      *repository.SalesContractRepository
	vendorRepo  *repository.VendorRepository
	companyRepo *repository.CompanyRepository
	auditRepo   *repository.AuditRepository
	ledger      *LedgerService
	db          *gorm.DB
}

func NewSalesContractService(
	scRepo *repository.SalesContractRepository,
	vendorRepo *repository.VendorRepository,
	companyRepo *repository.CompanyRepository,
	auditRepo *repository.AuditRepository,
	ledger *LedgerService,
	db *gorm.DB,
) *SalesContractService {
	return &SalesContractService{
		scRepo:      scRepo,
		vendorRepo:  vendorRepo,
		companyRepo: companyRepo,
		auditRepo:   auditRepo,
		ledger:      ledger,
		db:          db,
	}
}

// CreateSalesContractRequest 创建销售合同请求
type CreateSalesContractRequest struct {
	Title          string          `json:"title" binding:"required"`
	ContractValue  decimal.Decimal `json:"contract_value" binding:"required"`
	Adjustment     decimal.Decimal `json:"adjustment"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	VendorID       *string         `json:"vendor_id"`
	CompanyID      *string         `json:"company_id"`
	AttachmentName string          `json:"attachment_name"`
	AttachmentURL  string          `json:"attachment_url"`
	SignedAt       *time.Time      `json:"signed_at"`
	Notes          string          `json:"notes"`
}

// UpdateSalesContractRequest 更新销售合同请求（对手方引用不可变更）
type UpdateSalesContractRequest struct {
	Title          *string          `json:"title"`
	ContractValue  *decimal.Decimal `json:"contract_value"`
	Adjustment     *decimal.Decimal `json:"adjustment"`
	TotalPaid      *decimal.Decimal `json:"total_paid"`
	AttachmentName *string          `json:"attachment_name"`
	AttachmentURL  *string          `json:"attachment_url"`
	SignedAt       *time.Time       `json:"signed_at"`
	Notes          *string          `json:"notes"`
}

// List 获取销售合同列表
func (s *SalesContractService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.SalesContract, int64, error) {
	return s.scRepo.FindAll(ctx, page, pageSize, filters)
}

// Get 获取销售合同详情
func (s *SalesContractService) Get(ctx context.Context, id string) (*entity.SalesContract, error) {
	return s.scRepo.FindByID(ctx, id)
}

// Create 创建销售合同
func (s *SalesContractService) Create(ctx context.Context, actor ActorContext, req *CreateSalesContractRequest) (*entity.SalesContract, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.ContractValue.IsNegative() || req.TotalPaid.IsNegative() {
		return nil, fmt.Errorf("%w: amounts must not be negative", ErrValidation)
	}
	if err := s.checkCounterparties(ctx, req.VendorID, req.CompanyID); err != nil {
		return nil, err
	}

	code, err := s.scRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成销售合同编码失败: %w", err)
	}

	sc := &entity.SalesContract{
		ID:             uuid.New().String()[:32],
		Code:           code,
		Title:          req.Title,
		ContractValue:  req.ContractValue,
		Adjustment:     req.Adjustment,
		TotalPaid:      req.TotalPaid,
		VendorID:       req.VendorID,
		CompanyID:      req.CompanyID,
		AttachmentName: req.AttachmentName,
		AttachmentURL:  req.AttachmentURL,
		SignedAt:       req.SignedAt,
		CreatedBy:      actor.EmployeeID,
		Notes:          req.Notes,
	}
	sc.Recalc()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sc).Error; err != nil {
			return fmt.Errorf("创建销售合同失败: %w", err)
		}

		delta := LedgerDelta{
			NewValue:   sc.ModifiedValue,
			CountDelta: 1,
			NewPaid:    sc.TotalPaid,
			NewDue:     sc.DuePayment,
		}
		if err := s.ledger.ApplyAll(tx, sc.Counterparties(), entity.ContractKindSales, delta); err != nil {
			return err
		}

		return s.auditRepo.LogSalesContractTx(tx, sc.ID, entity.AuditOpCreate, actor.EmployeeID, actor.RoleID, nil, sc)
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// Update 更新销售合同：金额（价值或回款）有实际变化才触发汇总增量
func (s *SalesContractService) Update(ctx context.Context, actor ActorContext, id string, req *UpdateSalesContractRequest) (*entity.SalesContract, error) {
	var sc *entity.SalesContract

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sc, err = s.scRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		pre := *sc

		if req.Title != nil {
			sc.Title = *req.Title
		}
		if req.ContractValue != nil {
			if req.ContractValue.IsNegative() {
				return fmt.Errorf("%w: contract_value must not be negative", ErrValidation)
			}
			sc.ContractValue = *req.ContractValue
		}
		if req.Adjustment != nil {
			sc.Adjustment = *req.Adjustment
		}
		if req.TotalPaid != nil {
			if req.TotalPaid.IsNegative() {
				return fmt.Errorf("%w: total_paid must not be negative", ErrValidation)
			}
			sc.TotalPaid = *req.TotalPaid
		}
		if req.AttachmentName != nil {
			sc.AttachmentName = *req.AttachmentName
		}
		if req.AttachmentURL != nil {
			sc.AttachmentURL = *req.AttachmentURL
		}
		if req.SignedAt != nil {
			sc.SignedAt = req.SignedAt
		}
		if req.Notes != nil {
			sc.Notes = *req.Notes
		}
		sc.Recalc()

		valueChanged := !pre.ModifiedValue.Equal(sc.ModifiedValue) ||
			!pre.TotalPaid.Equal(sc.TotalPaid) ||
			!pre.DuePayment.Equal(sc.DuePayment)
		if valueChanged {
			delta := LedgerDelta{
				OldValue: pre.ModifiedValue,
				NewValue: sc.ModifiedValue,
				OldPaid:  pre.TotalPaid,
				NewPaid:  sc.TotalPaid,
				OldDue:   pre.DuePayment,
				NewDue:   sc.DuePayment,
			}
			if err := s.ledger.ApplyAll(tx, sc.Counterparties(), entity.ContractKindSales, delta); err != nil {
				return err
			}
		}

		if err := tx.Save(sc).Error; err != nil {
			return fmt.Errorf("更新销售合同失败: %w", err)
		}

		return s.auditRepo.LogSalesContractTx(tx, sc.ID, entity.AuditOpUpdate, actor.EmployeeID, actor.RoleID, &pre, sc)
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// Delete 删除销售合同：冲回全部汇总贡献后删行
func (s *SalesContractService) Delete(ctx context.Context, actor ActorContext, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sc, err := s.scRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		delta := LedgerDelta{
			OldValue:   sc.ModifiedValue,
			CountDelta: -1,
			OldPaid:    sc.TotalPaid,
			OldDue:     sc.DuePayment,
		}
		if err := s.ledger.ApplyAll(tx, sc.Counterparties(), entity.ContractKindSales, delta); err != nil {
			return err
		}

		if err := s.auditRepo.LogSalesContractTx(tx, sc.ID, entity.AuditOpDelete, actor.EmployeeID, actor.RoleID, sc, nil); err != nil {
			return err
		}

		return tx.Delete(&entity.SalesContract{}, "id = ?", sc.ID).Error
	})
}

func (s *SalesContractService) checkCounterparties(ctx context.Context, vendorID, companyID *string) error {
	if vendorID != nil && *vendorID != "" {
		if _, err := s.vendorRepo.FindByID(ctx, *vendorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: vendor %s", ErrNotFound, *vendorID)
			}
			return err
		}
	}
	if companyID != nil && *companyID != "" {
		if _, err := s.companyRepo.FindByID(ctx, *companyID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: company %s", ErrNotFound, *companyID)
			}
			return err
		}
	}
	return nil
}
