package service_test

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-oa/internal/config"
	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/bitfantasy/nimo-oa/internal/oa/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type approvalEnv struct {
	db    *gorm.DB
	repos *repository.Repositories
	svc   *service.ApprovalService

	staffRole   *entity.Role
	managerRole *entity.Role
	moneyRole   *entity.Role
	ceoRole     *entity.Role

	dept1 *entity.Department
	dept2 *entity.Department

	requester *entity.Employee // staff, dept1
	m1, m2    *entity.Employee // direct_manager, dept1
	m3        *entity.Employee // direct_manager, dept2
	fin       *entity.Employee // monetary
	ceo       *entity.Employee // ceo
}

func newApprovalEnv(t *testing.T) *approvalEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	stages := config.ApprovalConfig{
		ManagerRole:  entity.RoleNameDirectManager,
		MonetaryRole: entity.RoleNameMonetary,
		CEORole:      entity.RoleNameCEO,
	}
	notify := service.NewNotifyService(repos.Notification, repos.Employee, nil, nil)
	svc := service.NewApprovalService(repos.Order, repos.Employee, repos.Audit, notify, stages, db)

	env := &approvalEnv{db: db, repos: repos, svc: svc}
	env.staffRole = testutil.SeedRole(t, db, "role-staff", entity.RoleNameStaff, 100)
	env.managerRole = testutil.SeedRole(t, db, "role-mgr", entity.RoleNameDirectManager, 500)
	env.moneyRole = testutil.SeedRole(t, db, "role-fin", entity.RoleNameMonetary, 0)
	env.ceoRole = testutil.SeedRole(t, db, "role-ceo", entity.RoleNameCEO, 0)

	env.dept1 = testutil.SeedDepartment(t, db, "dept-1", "研发部")
	env.dept2 = testutil.SeedDepartment(t, db, "dept-2", "市场部")

	env.requester = testutil.SeedEmployee(t, db, "emp-req", "申请人", env.staffRole.ID, env.dept1.ID)
	env.m1 = testutil.SeedEmployee(t, db, "emp-m1", "主管一", env.managerRole.ID, env.dept1.ID)
	env.m2 = testutil.SeedEmployee(t, db, "emp-m2", "主管二", env.managerRole.ID, env.dept1.ID)
	env.m3 = testutil.SeedEmployee(t, db, "emp-m3", "外部门主管", env.managerRole.ID, env.dept2.ID)
	env.fin = testutil.SeedEmployee(t, db, "emp-fin", "财务审批", env.moneyRole.ID, env.dept1.ID)
	env.ceo = testutil.SeedEmployee(t, db, "emp-ceo", "老板", env.ceoRole.ID, env.dept1.ID)

	return env
}

func (e *approvalEnv) actorFor(emp *entity.Employee) service.ActorContext {
	return service.ActorContext{
		EmployeeID:   emp.ID,
		RoleID:       emp.RoleID,
		DepartmentID: emp.DepartmentID,
	}
}

func (e *approvalEnv) createOrder(t *testing.T, requester *entity.Employee, price float64) *entity.Order {
	t.Helper()
	order, err := e.svc.CreateOrder(context.Background(), e.actorFor(requester), &service.CreateOrderRequest{
		Title: "办公用品采购",
		Price: dec(price),
	})
	require.NoError(t, err)
	return order
}

func (e *approvalEnv) approvals(t *testing.T, orderID string) []entity.OrderApproval {
	t.Helper()
	var rows []entity.OrderApproval
	require.NoError(t, e.db.Where("order_id = ?", orderID).Order("assigned_at ASC").Find(&rows).Error)
	return rows
}

func (e *approvalEnv) chain(t *testing.T, orderID string) []entity.ApprovalEntry {
	t.Helper()
	var rows []entity.ApprovalEntry
	require.NoError(t, e.db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func TestCreateOrderSelfApproveWithinLimit(t *testing.T) {
	env := newApprovalEnv(t)

	// 员工自批额度100，价格80 → 直接通过
	order := env.createOrder(t, env.requester, 80)

	assert.Equal(t, entity.OrderStatusApproved, order.FinalStatus)
	assert.Nil(t, order.CurrentApproverRole)

	chain := env.chain(t, order.ID)
	require.Len(t, chain, 1)
	assert.Equal(t, entity.ChainActionSelfApproved, chain[0].Action)
	assert.Equal(t, env.requester.ID, chain[0].ActorID)

	// 自批不产生任何审批分配
	assert.Empty(t, env.approvals(t, order.ID))
}

func TestCreateOrderRoutesToDepartmentManagers(t *testing.T) {
	env := newApprovalEnv(t)

	order := env.createOrder(t, env.requester, 5000)

	assert.Equal(t, entity.OrderStatusPending, order.FinalStatus)
	require.NotNil(t, order.CurrentApproverRole)
	assert.Equal(t, env.managerRole.ID, *order.CurrentApproverRole)

	// 仅本部门主管收到分配，外部门主管不参与
	rows := env.approvals(t, order.ID)
	require.Len(t, rows, 2)
	ids := []string{rows[0].EmployeeID, rows[1].EmployeeID}
	assert.ElementsMatch(t, []string{env.m1.ID, env.m2.ID}, ids)

	chain := env.chain(t, order.ID)
	require.Len(t, chain, 1)
	assert.Equal(t, entity.ChainActionForwarded, chain[0].Action)
}

func TestCreateOrderManagerRequesterSkipsToMonetary(t *testing.T) {
	env := newApprovalEnv(t)

	order := env.createOrder(t, env.m1, 5000)

	require.NotNil(t, order.CurrentApproverRole)
	assert.Equal(t, env.moneyRole.ID, *order.CurrentApproverRole)

	rows := env.approvals(t, order.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, env.fin.ID, rows[0].EmployeeID)
}

func TestCreateOrderFailsWhenNoApprovers(t *testing.T) {
	env := newApprovalEnv(t)

	// dept2没有staff角色员工之外的路由目标：申请人在一个没有主管的部门
	dept3 := testutil.SeedDepartment(t, env.db, "dept-3", "无主管部门")
	lonely := testutil.SeedEmployee(t, env.db, "emp-lonely", "孤员工", env.staffRole.ID, dept3.ID)

	_, err := env.svc.CreateOrder(context.Background(), env.actorFor(lonely), &service.CreateOrderRequest{
		Title: "无人可批",
		Price: dec(5000),
	})
	assert.ErrorIs(t, err, service.ErrRoutingTargetMissing)

	// 整体回滚：订单不应落库
	var count int64
	require.NoError(t, env.db.Model(&entity.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFullApprovalFlowToTerminal(t *testing.T) {
	env := newApprovalEnv(t)
	ctx := context.Background()

	order := env.createOrder(t, env.requester, 5000)

	// 主管批准 → 资金阶段
	order2, err := env.svc.Decide(ctx, env.actorFor(env.m1), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
		Comment:  "预算内",
	})
	require.NoError(t, err)
	require.NotNil(t, order2.CurrentApproverRole)
	assert.Equal(t, env.moneyRole.ID, *order2.CurrentApproverRole)

	// 资金批准 → CEO阶段
	order3, err := env.svc.Decide(ctx, env.actorFor(env.fin), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
	})
	require.NoError(t, err)
	require.NotNil(t, order3.CurrentApproverRole)
	assert.Equal(t, env.ceoRole.ID, *order3.CurrentApproverRole)

	// CEO批准 → 终态通过
	order4, err := env.svc.Decide(ctx, env.actorFor(env.ceo), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusApproved, order4.FinalStatus)
	assert.Nil(t, order4.CurrentApproverRole)

	// 审批链：forwarded + 三次approved
	chain := env.chain(t, order.ID)
	require.Len(t, chain, 4)
	assert.Equal(t, entity.ChainActionForwarded, chain[0].Action)
	for _, entry := range chain[1:] {
		assert.Equal(t, entity.ChainActionApproved, entry.Action)
	}

	// 申请人收到终态通知（发件箱行）
	var notifCount int64
	require.NoError(t, env.db.Model(&entity.Notification{}).
		Where("order_id = ? AND type_id = ?", order.ID, entity.NotifyTypeOrderApproved).
		Count(&notifCount).Error)
	assert.Equal(t, int64(1), notifCount)
}

func TestRejectIsFinal(t *testing.T) {
	env := newApprovalEnv(t)
	ctx := context.Background()

	order := env.createOrder(t, env.requester, 5000)

	order2, err := env.svc.Decide(ctx, env.actorFor(env.m1), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusRejected,
		Comment:  "超预算",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusRejected, order2.FinalStatus)
	assert.Nil(t, order2.CurrentApproverRole)

	// 终态订单拒绝任何后续决策
	_, err = env.svc.Decide(ctx, env.actorFor(env.fin), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
	})
	assert.ErrorIs(t, err, service.ErrStaleStage)

	// 申请人收到驳回通知
	var notifCount int64
	require.NoError(t, env.db.Model(&entity.Notification{}).
		Where("order_id = ? AND type_id = ?", order.ID, entity.NotifyTypeOrderRejected).
		Count(&notifCount).Error)
	assert.Equal(t, int64(1), notifCount)
}

func TestFirstApproverWinsAndSupersedes(t *testing.T) {
	env := newApprovalEnv(t)
	ctx := context.Background()

	order := env.createOrder(t, env.requester, 5000)

	_, err := env.svc.Decide(ctx, env.actorFor(env.m1), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
	})
	require.NoError(t, err)

	// 慢的主管再决策：本人记录已被作废
	_, err = env.svc.Decide(ctx, env.actorFor(env.m2), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusRejected,
	})
	assert.ErrorIs(t, err, service.ErrStaleStage)

	// m2的分配记录被置为superseded
	var m2Row entity.OrderApproval
	require.NoError(t, env.db.
		Where("order_id = ? AND employee_id = ?", order.ID, env.m2.ID).
		First(&m2Row).Error)
	assert.Equal(t, entity.ApprovalStatusRejected, m2Row.Status)
	assert.Equal(t, entity.ChainActionSuperseded, m2Row.Comment)
	assert.NotNil(t, m2Row.DecidedAt)
}

func TestRejectAtMonetaryStageSupersedesSiblings(t *testing.T) {
	env := newApprovalEnv(t)
	ctx := context.Background()

	// 第二名财务审批人，资金阶段出现并行分配
	fin2 := testutil.SeedEmployee(t, env.db, "emp-fin2", "财务审批二", env.moneyRole.ID, env.dept2.ID)

	order := env.createOrder(t, env.requester, 5000)
	_, err := env.svc.Decide(ctx, env.actorFor(env.m1), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
	})
	require.NoError(t, err)

	// 资金阶段驳回即终局
	order2, err := env.svc.Decide(ctx, env.actorFor(env.fin), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusRejected,
		Comment:  "资金不足",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusRejected, order2.FinalStatus)
	assert.Nil(t, order2.CurrentApproverRole)

	// 另一名财务的分配记录被作废
	var fin2Row entity.OrderApproval
	require.NoError(t, env.db.
		Where("order_id = ? AND employee_id = ?", order.ID, fin2.ID).
		First(&fin2Row).Error)
	assert.Equal(t, entity.ApprovalStatusRejected, fin2Row.Status)
	assert.Equal(t, entity.ChainActionSuperseded, fin2Row.Comment)

	// 被作废的财务再决策得到的是 StaleStage 而不是 403
	_, err = env.svc.Decide(ctx, env.actorFor(fin2), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
	})
	assert.ErrorIs(t, err, service.ErrStaleStage)
}

func TestDecideRequiresCurrentStageRole(t *testing.T) {
	env := newApprovalEnv(t)
	ctx := context.Background()

	order := env.createOrder(t, env.requester, 5000)

	// 当前是主管阶段，财务无权决策
	_, err := env.svc.Decide(ctx, env.actorFor(env.fin), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
	})
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	// 外部门主管角色匹配但没有分配记录，同样无权
	_, err = env.svc.Decide(ctx, env.actorFor(env.m3), order.ID, &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
	})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestDecideValidation(t *testing.T) {
	env := newApprovalEnv(t)
	ctx := context.Background()

	order := env.createOrder(t, env.requester, 5000)

	_, err := env.svc.Decide(ctx, env.actorFor(env.m1), order.ID, &service.DecideRequest{
		Decision: "maybe",
	})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = env.svc.Decide(ctx, env.actorFor(env.m1), "no-such-order", &service.DecideRequest{
		Decision: entity.ApprovalStatusApproved,
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCreateOrderValidation(t *testing.T) {
	env := newApprovalEnv(t)

	_, err := env.svc.CreateOrder(context.Background(), env.actorFor(env.requester), &service.CreateOrderRequest{
		Title: "免费物品",
		Price: dec(0),
	})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestUpdateDeliveryOnlyForApprovedOrders(t *testing.T) {
	env := newApprovalEnv(t)
	ctx := context.Background()

	pending := env.createOrder(t, env.requester, 5000)
	_, err := env.svc.UpdateDelivery(ctx, env.actorFor(env.requester), pending.ID, &service.UpdateDeliveryRequest{
		DeliveryNote: strPtr("还没批就想收货"),
	})
	assert.ErrorIs(t, err, service.ErrValidation)

	// 自批通过的订单可以记录交付
	approved := env.createOrder(t, env.requester, 50)
	updated, err := env.svc.UpdateDelivery(ctx, env.actorFor(env.requester), approved.ID, &service.UpdateDeliveryRequest{
		DeliveryNote: strPtr("已于前台签收"),
	})
	require.NoError(t, err)
	assert.Equal(t, "已于前台签收", updated.DeliveryNote)
}

func TestPendingStageNotificationTargetsManagers(t *testing.T) {
	env := newApprovalEnv(t)

	order := env.createOrder(t, env.requester, 5000)

	var n entity.Notification
	require.NoError(t, env.db.
		Where("order_id = ? AND type_id = ?", order.ID, entity.NotifyTypeOrderPending).
		First(&n).Error)
	assert.Equal(t, entity.NotifyTargetRoleDept, n.TargetKind)
	assert.Equal(t, env.dept1.ID, n.DepartmentID)
}
