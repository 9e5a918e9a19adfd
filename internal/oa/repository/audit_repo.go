package repository

import (
	"context"
	"encoding/json"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditRepository 审计日志仓库：只追加写入
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// record 构造公共字段，old/new 为 nil 时快照留空
func record(operation, actorID, roleID string, oldData, newData interface{}) (entity.AuditRecord, error) {
	rec := entity.AuditRecord{
		ID:        uuid.New().String()[:32],
		Operation: operation,
		ActorID:   actorID,
		RoleID:    roleID,
	}
	if oldData != nil {
		raw, err := json.Marshal(oldData)
		if err != nil {
			return rec, err
		}
		rec.OldData = raw
	}
	if newData != nil {
		raw, err := json.Marshal(newData)
		if err != nil {
			return rec, err
		}
		rec.NewData = raw
	}
	return rec, nil
}

// LogOrderTx 在事务内写订单审计日志
func (r *AuditRepository) LogOrderTx(tx *gorm.DB, orderID, operation, actorID, roleID string, oldData, newData interface{}) error {
	rec, err := record(operation, actorID, roleID, oldData, newData)
	if err != nil {
		return err
	}
	return tx.Create(&entity.OrderAuditLog{AuditRecord: rec, OrderID: orderID}).Error
}

// LogDocumentTx 在事务内写其他合同审计日志
func (r *AuditRepository) LogDocumentTx(tx *gorm.DB, documentID, operation, actorID, roleID string, oldData, newData interface{}) error {
	rec, err := record(operation, actorID, roleID, oldData, newData)
	if err != nil {
		return err
	}
	return tx.Create(&entity.DocumentAuditLog{AuditRecord: rec, DocumentID: documentID}).Error
}

// LogSalesContractTx 在事务内写销售合同审计日志
func (r *AuditRepository) LogSalesContractTx(tx *gorm.DB, contractID, operation, actorID, roleID string, oldData, newData interface{}) error {
	rec, err := record(operation, actorID, roleID, oldData, newData)
	if err != nil {
		return err
	}
	return tx.Create(&entity.SalesContractAuditLog{AuditRecord: rec, SalesContractID: contractID}).Error
}

// FindByOrder 查询订单审计日志
func (r *AuditRepository) FindByOrder(ctx context.Context, orderID string, page, pageSize int) ([]entity.OrderAuditLog, int64, error) {
	var items []entity.OrderAuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.OrderAuditLog{}).Where("order_id = ?", orderID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}
