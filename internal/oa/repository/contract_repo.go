package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository 其他合同仓库
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// FindAll 查询合同列表
func (r *DocumentRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Document, int64, error) {
	var items []entity.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Document{})

	if vendorID := filters["vendor_id"]; vendorID != "" {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if companyID := filters["company_id"]; companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("code ILIKE ? OR title ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Vendor").
		Preload("Company").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找合同
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Company").
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByIDForUpdate 在事务内加行锁读取合同
func (r *DocumentRepository) FindByIDForUpdate(tx *gorm.DB, id string) (*entity.Document, error) {
	var doc entity.Document
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// GenerateCode 生成合同编码 DOC-{year}-{4位}
func (r *DocumentRepository) GenerateCode(ctx context.Context) (string, error) {
	return generateCode(ctx, r.db, &entity.Document{}, "code", "DOC")
}

// SalesContractRepository 销售合同仓库
type SalesContractRepository struct {
	db *gorm.DB
}

func NewSalesContractRepository(db *gorm.DB) *SalesContractRepository {
	return &SalesContractRepository{db: db}
}

// FindAll 查询销售合同列表
func (r *SalesContractRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.SalesContract, int64, error) {
	var items []entity.SalesContract
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SalesContract{})

	if vendorID := filters["vendor_id"]; vendorID != "" {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if companyID := filters["company_id"]; companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("code ILIKE ? OR title ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Vendor").
		Preload("Company").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找销售合同
func (r *SalesContractRepository) FindByID(ctx context.Context, id string) (*entity.SalesContract, error) {
	var sc entity.SalesContract
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Company").
		Where("id = ?", id).
		First(&sc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sc, nil
}

// FindByIDForUpdate 在事务内加行锁读取销售合同
func (r *SalesContractRepository) FindByIDForUpdate(tx *gorm.DB, id string) (*entity.SalesContract, error) {
	var sc entity.SalesContract
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&sc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sc, nil
}

// GenerateCode 生成销售合同编码 SC-{year}-{4位}
func (r *SalesContractRepository) GenerateCode(ctx context.Context) (string, error) {
	return generateCode(ctx, r.db, &entity.SalesContract{}, "code", "SC")
}
