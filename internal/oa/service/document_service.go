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

// DocumentService 其他合同生命周期
// 每次变更：合同写入 + 汇总增量 + 审计日志，三步一个事务，任一失败整体回滚
type DocumentService struct {
	docRepo     *repository.DocumentRepository
	vendorRepo  *repository.VendorRepository
	companyRepo *repository.CompanyRepository
	auditRepo   *repository.AuditRepository
	ledger      *LedgerService
	db          *gorm.DB
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	vendorRepo *repository.VendorRepository,
	companyRepo *repository.CompanyRepository,
	auditRepo *repository.AuditRepository,
	ledger *LedgerService,
	db *gorm.DB,
) *DocumentService {
	return &DocumentService{
		docRepo:     docRepo,
		vendorRepo:  vendorRepo,
		companyRepo: companyRepo,
		auditRepo:   auditRepo,
		ledger:      ledger,
		db:          db,
	}
}

// CreateDocumentRequest 创建合同请求
type CreateDocumentRequest struct {
	Title          string          `json:"title" binding:"required"`
	Type           string          `json:"type"`
	ContractValue  decimal.Decimal `json:"contract_value" binding:"required"`
	ChangeOrder    decimal.Decimal `json:"change_order"`
	VendorID       *string         `json:"vendor_id"`
	CompanyID      *string         `json:"company_id"`
	AttachmentName string          `json:"attachment_name"`
	AttachmentURL  string          `json:"attachment_url"`
	StartDate      *time.Time      `json:"start_date"`
	EndDate        *time.Time      `json:"end_date"`
	Notes          string          `json:"notes"`
}

// UpdateDocumentRequest 更新合同请求（对手方引用不可变更）
type UpdateDocumentRequest struct {
	Title          *string          `json:"title"`
	Type           *string          `json:"type"`
	ContractValue  *decimal.Decimal `json:"contract_value"`
	ChangeOrder    *decimal.Decimal `json:"change_order"`
	AttachmentName *string          `json:"attachment_name"`
	AttachmentURL  *string          `json:"attachment_url"`
	StartDate      *time.Time       `json:"start_date"`
	EndDate        *time.Time       `json:"end_date"`
	Notes          *string          `json:"notes"`
}

// List 获取合同列表
func (s *DocumentService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Document, int64, error) {
	return s.docRepo.FindAll(ctx, page, pageSize, filters)
}

// Get 获取合同详情
func (s *DocumentService) Get(ctx context.Context, id string) (*entity.Document, error) {
	return s.docRepo.FindByID(ctx, id)
}

// Create 创建合同：落库 + 汇总增量(+1) + 审计，一个事务
func (s *DocumentService) Create(ctx context.Context, actor ActorContext, req *CreateDocumentRequest) (*entity.Document, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.ContractValue.IsNegative() {
		return nil, fmt.Errorf("%w: contract_value must not be negative", ErrValidation)
	}
	if err := s.checkCounterparties(ctx, req.VendorID, req.CompanyID); err != nil {
		return nil, err
	}

	code, err := s.docRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成合同编码失败: %w", err)
	}

	doc := &entity.Document{
		ID:             uuid.New().String()[:32],
		Code:           code,
		Title:          req.Title,
		Type:           req.Type,
		ContractValue:  req.ContractValue,
		ChangeOrder:    req.ChangeOrder,
		VendorID:       req.VendorID,
		CompanyID:      req.CompanyID,
		AttachmentName: req.AttachmentName,
		AttachmentURL:  req.AttachmentURL,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		CreatedBy:      actor.EmployeeID,
		Notes:          req.Notes,
	}
	doc.Recalc()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("创建合同失败: %w", err)
		}

		delta := LedgerDelta{NewValue: doc.ModifiedValue, CountDelta: 1}
		if err := s.ledger.ApplyAll(tx, doc.Counterparties(), entity.ContractKindDocument, delta); err != nil {
			return err
		}

		return s.auditRepo.LogDocumentTx(tx, doc.ID, entity.AuditOpCreate, actor.EmployeeID, actor.RoleID, nil, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Update 更新合同：仅当 modified_value 实际变化时才触发汇总增量，
// 纯附件/文本改动不碰汇总行
func (s *DocumentService) Update(ctx context.Context, actor ActorContext, id string, req *UpdateDocumentRequest) (*entity.Document, error) {
	var doc *entity.Document

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		doc, err = s.docRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		pre := *doc

		if req.Title != nil {
			doc.Title = *req.Title
		}
		if req.Type != nil {
			doc.Type = *req.Type
		}
		if req.ContractValue != nil {
			if req.ContractValue.IsNegative() {
				return fmt.Errorf("%w: contract_value must not be negative", ErrValidation)
			}
			doc.ContractValue = *req.ContractValue
		}
		if req.ChangeOrder != nil {
			doc.ChangeOrder = *req.ChangeOrder
		}
		if req.AttachmentName != nil {
			doc.AttachmentName = *req.AttachmentName
		}
		if req.AttachmentURL != nil {
			doc.AttachmentURL = *req.AttachmentURL
		}
		if req.StartDate != nil {
			doc.StartDate = req.StartDate
		}
		if req.EndDate != nil {
			doc.EndDate = req.EndDate
		}
		if req.Notes != nil {
			doc.Notes = *req.Notes
		}
		doc.Recalc()

		if !pre.ModifiedValue.Equal(doc.ModifiedValue) {
			delta := LedgerDelta{OldValue: pre.ModifiedValue, NewValue: doc.ModifiedValue}
			if err := s.ledger.ApplyAll(tx, doc.Counterparties(), entity.ContractKindDocument, delta); err != nil {
				return err
			}
		}

		if err := tx.Save(doc).Error; err != nil {
			return fmt.Errorf("更新合同失败: %w", err)
		}

		return s.auditRepo.LogDocumentTx(tx, doc.ID, entity.AuditOpUpdate, actor.EmployeeID, actor.RoleID, &pre, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete 删除合同：先冲回汇总贡献(-1)，再写审计，最后删行，一个事务
func (s *DocumentService) Delete(ctx context.Context, actor ActorContext, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.docRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		delta := LedgerDelta{OldValue: doc.ModifiedValue, CountDelta: -1}
		if err := s.ledger.ApplyAll(tx, doc.Counterparties(), entity.ContractKindDocument, delta); err != nil {
			return err
		}

		if err := s.auditRepo.LogDocumentTx(tx, doc.ID, entity.AuditOpDelete, actor.EmployeeID, actor.RoleID, doc, nil); err != nil {
			return err
		}

		return tx.Delete(&entity.Document{}, "id = ?", doc.ID).Error
	})
}

// checkCounterparties 校验引用的对手方存在
func (s *DocumentService) checkCounterparties(ctx context.Context, vendorID, companyID *string) error {
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
