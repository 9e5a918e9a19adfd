package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRepository 通知发件箱仓库
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateTx 在业务事务内落发件箱行
func (r *NotificationRepository) CreateTx(tx *gorm.DB, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()[:32]
	}
	if n.Status == "" {
		n.Status = entity.NotificationStatusPending
	}
	return tx.Create(n).Error
}

// FindPending 查询待投递通知
func (r *NotificationRepository) FindPending(ctx context.Context, limit int) ([]entity.Notification, error) {
	var items []entity.Notification
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.NotificationStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// MarkSent 标记已投递
func (r *NotificationRepository) MarkSent(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  entity.NotificationStatusSent,
			"sent_at": &now,
		}).Error
}

// MarkFailed 标记投递失败（只记录，不回滚业务）
func (r *NotificationRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	if len(errMsg) > 500 {
		errMsg = errMsg[:500]
	}
	return r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": entity.NotificationStatusFailed,
			"error":  errMsg,
		}).Error
}

// CreateDelivery 写站内信投递记录
func (r *NotificationRepository) CreateDelivery(ctx context.Context, d *entity.NotificationDelivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(d).Error
}

// FindDeliveriesForEmployee 查询员工站内信
func (r *NotificationRepository) FindDeliveriesForEmployee(ctx context.Context, employeeID string, page, pageSize int) ([]entity.NotificationDelivery, int64, error) {
	var items []entity.NotificationDelivery
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.NotificationDelivery{}).
		Where("employee_id = ?", employeeID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}
