package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevenueRepository 营收汇总仓库
// 汇总行是唯一被多个写路径并发修改的资源，读-改-写期间必须持有行锁，
// 所有加锁方法都要求在调用方事务内执行
type RevenueRepository struct {
	db *gorm.DB
}

func NewRevenueRepository(db *gorm.DB) *RevenueRepository {
	return &RevenueRepository{db: db}
}

// FindOrCreateVendorLocked 加行锁查找供应商汇总行，不存在则创建后再锁定
func (r *RevenueRepository) FindOrCreateVendorLocked(tx *gorm.DB, vendorID string) (*entity.VendorRevenueSummary, error) {
	var summary entity.VendorRevenueSummary
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ?", vendorID).
		First(&summary).Error
	if err == nil {
		return &summary, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	summary = entity.VendorRevenueSummary{
		ID:       uuid.New().String()[:32],
		VendorID: vendorID,
	}
	if err := tx.Create(&summary).Error; err != nil {
		// 并发首建撞唯一索引时退回加锁读取
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing entity.VendorRevenueSummary
			if err2 := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("vendor_id = ?", vendorID).
				First(&existing).Error; err2 != nil {
				return nil, err2
			}
			return &existing, nil
		}
		return nil, err
	}
	return &summary, nil
}

// FindOrCreateCompanyLocked 加行锁查找公司汇总行，不存在则创建后再锁定
func (r *RevenueRepository) FindOrCreateCompanyLocked(tx *gorm.DB, companyID string) (*entity.CompanyRevenueSummary, error) {
	var summary entity.CompanyRevenueSummary
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ?", companyID).
		First(&summary).Error
	if err == nil {
		return &summary, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	summary = entity.CompanyRevenueSummary{
		ID:        uuid.New().String()[:32],
		CompanyID: companyID,
	}
	if err := tx.Create(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing entity.CompanyRevenueSummary
			if err2 := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("company_id = ?", companyID).
				First(&existing).Error; err2 != nil {
				return nil, err2
			}
			return &existing, nil
		}
		return nil, err
	}
	return &summary, nil
}

// FindByVendorID 查询供应商汇总（只读）
func (r *RevenueRepository) FindByVendorID(ctx context.Context, vendorID string) (*entity.VendorRevenueSummary, error) {
	var summary entity.VendorRevenueSummary
	err := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &summary, nil
}

// FindByCompanyID 查询公司汇总（只读）
func (r *RevenueRepository) FindByCompanyID(ctx context.Context, companyID string) (*entity.CompanyRevenueSummary, error) {
	var summary entity.CompanyRevenueSummary
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &summary, nil
}
