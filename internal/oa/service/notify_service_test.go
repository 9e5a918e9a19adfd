package service_test

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/bitfantasy/nimo-oa/internal/oa/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDispatchExpandsRoleTargetsAndHonorsOptOuts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := service.NewNotifyService(repos.Notification, repos.Employee, nil, nil)
	ctx := context.Background()

	role := testutil.SeedRole(t, db, "role-mgr", entity.RoleNameDirectManager, 0)
	dept := testutil.SeedDepartment(t, db, "dept-1", "研发部")
	m1 := testutil.SeedEmployee(t, db, "emp-m1", "主管一", role.ID, dept.ID)

	// m2 退订了待审批通知
	m2 := testutil.SeedEmployee(t, db, "emp-m2", "主管二", role.ID, dept.ID)
	require.NoError(t, db.Model(&entity.Employee{}).
		Where("id = ?", m2.ID).
		Update("notify_opt_outs", entity.JSONBArray{entity.NotifyTypeOrderPending}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.EnqueueTx(tx, &entity.Notification{
			TargetKind:   entity.NotifyTargetRoleDept,
			Targets:      entity.JSONBArray{role.ID},
			DepartmentID: dept.ID,
			TypeID:       entity.NotifyTypeOrderPending,
			Message:      "订单 ORD-2026-0001 等待审批",
			OrderID:      "order-1",
		})
	})
	require.NoError(t, err)

	svc.Dispatch(ctx)

	// m1收到站内信，m2因退订被跳过
	var deliveries []entity.NotificationDelivery
	require.NoError(t, db.Find(&deliveries).Error)
	require.Len(t, deliveries, 1)
	assert.Equal(t, m1.ID, deliveries[0].EmployeeID)

	// 发件箱行标记已投递
	var n entity.Notification
	require.NoError(t, db.First(&n).Error)
	assert.Equal(t, entity.NotificationStatusSent, n.Status)
	assert.NotNil(t, n.SentAt)
}

func TestDispatchEmployeeTarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := service.NewNotifyService(repos.Notification, repos.Employee, nil, nil)

	role := testutil.SeedRole(t, db, "role-staff", entity.RoleNameStaff, 0)
	dept := testutil.SeedDepartment(t, db, "dept-1", "研发部")
	emp := testutil.SeedEmployee(t, db, "emp-1", "申请人", role.ID, dept.ID)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.EnqueueTx(tx, &entity.Notification{
			TargetKind: entity.NotifyTargetEmployees,
			Targets:    entity.JSONBArray{emp.ID},
			TypeID:     entity.NotifyTypeOrderApproved,
			Message:    "订单已通过",
			OrderID:    "order-1",
		})
	})
	require.NoError(t, err)

	svc.Dispatch(context.Background())

	items, total, err := repos.Notification.FindDeliveriesForEmployee(context.Background(), emp.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "订单已通过", items[0].Message)
}
