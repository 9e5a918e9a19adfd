package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oa/internal/config"
	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApprovalService 订单审批状态机
// 所有状态流转（授权检查、订单更新、审批记录流转、审批链追加）在一个事务内完成；
// 通知只在事务提交后投递，投递失败永远不会回滚已发生的业务变更
type ApprovalService struct {
	orderRepo    *repository.OrderRepository
	employeeRepo *repository.EmployeeRepository
	auditRepo    *repository.AuditRepository
	notify       *NotifyService
	stages       config.ApprovalConfig
	db           *gorm.DB
}

func NewApprovalService(
	orderRepo *repository.OrderRepository,
	employeeRepo *repository.EmployeeRepository,
	auditRepo *repository.AuditRepository,
	notify *NotifyService,
	stages config.ApprovalConfig,
	db *gorm.DB,
) *ApprovalService {
	return &ApprovalService{
		orderRepo:    orderRepo,
		employeeRepo: employeeRepo,
		auditRepo:    auditRepo,
		notify:       notify,
		stages:       stages,
		db:           db,
	}
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
}

// DecideRequest 审批决策请求
type DecideRequest struct {
	Decision string `json:"decision" binding:"required"` // approved/rejected
	Comment  string `json:"comment"`
}

// List 获取订单列表
func (s *ApprovalService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	return s.orderRepo.FindAll(ctx, page, pageSize, filters)
}

// Get 获取订单详情
func (s *ApprovalService) Get(ctx context.Context, id string) (*entity.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// ListPendingFor 获取等待某员工审批的订单
func (s *ApprovalService) ListPendingFor(ctx context.Context, employeeID string, page, pageSize int) ([]entity.Order, int64, error) {
	return s.orderRepo.FindPendingForEmployee(ctx, employeeID, page, pageSize)
}

// CreateOrder 创建订单并计算初始路由
// 价格不超过申请人角色自批额度 → 直接通过；
// 申请人本身是直属主管 → 跳过主管阶段进入资金审批；
// 否则进入本部门直属主管阶段
func (s *ApprovalService) CreateOrder(ctx context.Context, actor ActorContext, req *CreateOrderRequest) (*entity.Order, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.Price.IsNegative() || req.Price.IsZero() {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}

	actorRole, err := s.employeeRepo.FindRoleByID(ctx, actor.RoleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: role %s", ErrNotFound, actor.RoleID)
		}
		return nil, err
	}

	code, err := s.orderRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成订单编码失败: %w", err)
	}

	order := &entity.Order{
		ID:           uuid.New().String()[:32],
		OrderCode:    code,
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		RequesterID:  actor.EmployeeID,
		DepartmentID: actor.DepartmentID,
		FinalStatus:  entity.OrderStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch {
		case req.Price.LessThanOrEqual(actorRole.ApprovalLimit):
			// 额度内自批：一条 self_approved 链记录，不生成任何审批分配
			order.FinalStatus = entity.OrderStatusApproved
			order.CurrentApproverRole = nil
			if err := tx.Create(order).Error; err != nil {
				return fmt.Errorf("创建订单失败: %w", err)
			}
			if err := s.appendChain(tx, order.ID, actor.EmployeeID, actor.RoleID, entity.ChainActionSelfApproved, ""); err != nil {
				return err
			}

		case actorRole.Name == s.stages.ManagerRole:
			// 申请人就是主管：跳过主管阶段，直接进入资金审批
			monetary, approvers, err := s.stageApprovers(ctx, s.stages.MonetaryRole, "")
			if err != nil {
				return err
			}
			order.CurrentApproverRole = &monetary.ID
			if err := tx.Create(order).Error; err != nil {
				return fmt.Errorf("创建订单失败: %w", err)
			}
			if err := s.assignApprovers(tx, order, monetary.ID, approvers); err != nil {
				return err
			}
			if err := s.appendChain(tx, order.ID, actor.EmployeeID, actor.RoleID, entity.ChainActionForwarded, "forwarded to monetary review"); err != nil {
				return err
			}
			if err := s.enqueueStageNotice(tx, order, monetary.ID, "", entity.NotifyTypeOrderPending); err != nil {
				return err
			}

		default:
			// 常规路由：本部门全部直属主管
			manager, approvers, err := s.stageApprovers(ctx, s.stages.ManagerRole, actor.DepartmentID)
			if err != nil {
				return err
			}
			order.CurrentApproverRole = &manager.ID
			if err := tx.Create(order).Error; err != nil {
				return fmt.Errorf("创建订单失败: %w", err)
			}
			if err := s.assignApprovers(tx, order, manager.ID, approvers); err != nil {
				return err
			}
			if err := s.appendChain(tx, order.ID, actor.EmployeeID, actor.RoleID, entity.ChainActionForwarded, "forwarded to direct manager"); err != nil {
				return err
			}
			if err := s.enqueueStageNotice(tx, order, manager.ID, actor.DepartmentID, entity.NotifyTypeOrderPending); err != nil {
				return err
			}
		}

		return s.auditRepo.LogOrderTx(tx, order.ID, entity.AuditOpCreate, actor.EmployeeID, actor.RoleID, nil, order)
	})
	if err != nil {
		return nil, err
	}

	s.dispatchAfterCommit()
	return order, nil
}

// Decide 审批决策：先到先得，同阶段其余待审记录被置为 superseded
func (s *ApprovalService) Decide(ctx context.Context, actor ActorContext, orderID string, req *DecideRequest) (*entity.Order, error) {
	if req.Decision != entity.ApprovalStatusApproved && req.Decision != entity.ApprovalStatusRejected {
		return nil, fmt.Errorf("%w: decision must be approved or rejected", ErrValidation)
	}

	var order entity.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁订单行：同阶段并发决策在此串行化，先到先得才有良定义
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// 终态订单不再接受任何决策
		if order.CurrentApproverRole == nil {
			return ErrStaleStage
		}
		// 先查操作者自己的审批分配记录，再做角色门：
		// 被抢先者的记录已非待审且阶段可能已推进，要得到 StaleStage 而不是 403；
		// 从未被分配过的操作者才算无权限
		var mine entity.OrderApproval
		if err := tx.Where("order_id = ? AND employee_id = ?", orderID, actor.EmployeeID).
			First(&mine).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnauthorized
			}
			return err
		}
		if mine.Status != entity.ApprovalStatusPending {
			// 同阶段有人抢先，本记录已被 superseded
			return ErrStaleStage
		}
		if actor.RoleID != *order.CurrentApproverRole {
			return ErrUnauthorized
		}

		pre := order

		now := time.Now()
		mine.Status = req.Decision
		mine.Comment = req.Comment
		mine.DecidedAt = &now
		if err := tx.Save(&mine).Error; err != nil {
			return fmt.Errorf("更新审批记录失败: %w", err)
		}

		if err := s.appendChain(tx, orderID, actor.EmployeeID, actor.RoleID, req.Decision, req.Comment); err != nil {
			return err
		}

		// 同阶段其余待审记录一律置为 superseded
		if err := s.supersedePending(tx, orderID, mine.ID); err != nil {
			return err
		}

		if req.Decision == entity.ApprovalStatusRejected {
			// 任一阶段驳回即终局，无升级无申诉
			order.FinalStatus = entity.OrderStatusRejected
			order.CurrentApproverRole = nil
			if err := tx.Save(&order).Error; err != nil {
				return fmt.Errorf("更新订单状态失败: %w", err)
			}
			if err := s.enqueueEmployeeNotice(tx, &order, order.RequesterID, entity.NotifyTypeOrderRejected,
				fmt.Sprintf("订单 %s 已被驳回", order.OrderCode)); err != nil {
				return err
			}
		} else {
			if err := s.advance(ctx, tx, &order); err != nil {
				return err
			}
		}

		return s.auditRepo.LogOrderTx(tx, orderID, entity.AuditOpUpdate, actor.EmployeeID, actor.RoleID, &pre, &order)
	})
	if err != nil {
		return nil, err
	}

	s.dispatchAfterCommit()
	return &order, nil
}

// advance 审批通过后推进到下一阶段：主管→资金→CEO→终态通过
func (s *ApprovalService) advance(ctx context.Context, tx *gorm.DB, order *entity.Order) error {
	manager, err := s.employeeRepo.FindRoleByName(ctx, s.stages.ManagerRole)
	if err != nil {
		return s.stageRoleErr(s.stages.ManagerRole, err)
	}
	monetary, err := s.employeeRepo.FindRoleByName(ctx, s.stages.MonetaryRole)
	if err != nil {
		return s.stageRoleErr(s.stages.MonetaryRole, err)
	}
	ceo, err := s.employeeRepo.FindRoleByName(ctx, s.stages.CEORole)
	if err != nil {
		return s.stageRoleErr(s.stages.CEORole, err)
	}

	switch *order.CurrentApproverRole {
	case manager.ID:
		approvers, err := s.requireApprovers(ctx, monetary.ID, "")
		if err != nil {
			return err
		}
		order.CurrentApproverRole = &monetary.ID
		if err := s.assignApprovers(tx, order, monetary.ID, approvers); err != nil {
			return err
		}
		if err := s.enqueueStageNotice(tx, order, monetary.ID, "", entity.NotifyTypeOrderPending); err != nil {
			return err
		}
		if err := s.enqueueEmployeeNotice(tx, order, order.RequesterID, entity.NotifyTypeOrderAdvanced,
			fmt.Sprintf("订单 %s 已通过主管审批，进入资金审批", order.OrderCode)); err != nil {
			return err
		}

	case monetary.ID:
		approvers, err := s.requireApprovers(ctx, ceo.ID, "")
		if err != nil {
			return err
		}
		order.CurrentApproverRole = &ceo.ID
		if err := s.assignApprovers(tx, order, ceo.ID, approvers); err != nil {
			return err
		}
		if err := s.enqueueStageNotice(tx, order, ceo.ID, "", entity.NotifyTypeOrderPending); err != nil {
			return err
		}

	case ceo.ID:
		order.FinalStatus = entity.OrderStatusApproved
		order.CurrentApproverRole = nil
		if err := s.enqueueEmployeeNotice(tx, order, order.RequesterID, entity.NotifyTypeOrderApproved,
			fmt.Sprintf("订单 %s 已全部审批通过", order.OrderCode)); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: order %s is at unknown stage role %s",
			ErrRoutingTargetMissing, order.ID, *order.CurrentApproverRole)
	}

	if err := tx.Save(order).Error; err != nil {
		return fmt.Errorf("更新订单状态失败: %w", err)
	}
	return nil
}

// UpdateDeliveryRequest 交付信息更新请求
type UpdateDeliveryRequest struct {
	DeliveredAt  *time.Time `json:"delivered_at"`
	DeliveryNote *string    `json:"delivery_note"`
}

// UpdateDelivery 终态通过的订单只允许更新交付信息
func (s *ApprovalService) UpdateDelivery(ctx context.Context, actor ActorContext, orderID string, req *UpdateDeliveryRequest) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if order.FinalStatus != entity.OrderStatusApproved {
		return nil, fmt.Errorf("%w: only approved orders accept delivery updates", ErrValidation)
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if req.DeliveredAt != nil {
		updates["delivered_at"] = req.DeliveredAt
	}
	if req.DeliveryNote != nil {
		updates["delivery_note"] = *req.DeliveryNote
	}
	if err := s.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.orderRepo.FindByID(ctx, orderID)
}

// stageApprovers 解析阶段角色并要求至少一名持有人，departmentID为空则全局查找
func (s *ApprovalService) stageApprovers(ctx context.Context, roleName, departmentID string) (*entity.Role, []entity.Employee, error) {
	role, err := s.employeeRepo.FindRoleByName(ctx, roleName)
	if err != nil {
		return nil, nil, s.stageRoleErr(roleName, err)
	}
	approvers, err := s.requireApprovers(ctx, role.ID, departmentID)
	if err != nil {
		return nil, nil, err
	}
	return role, approvers, nil
}

func (s *ApprovalService) requireApprovers(ctx context.Context, roleID, departmentID string) ([]entity.Employee, error) {
	var approvers []entity.Employee
	var err error
	if departmentID != "" {
		approvers, err = s.employeeRepo.FindActiveByRoleAndDept(ctx, roleID, departmentID)
	} else {
		approvers, err = s.employeeRepo.FindActiveByRole(ctx, roleID)
	}
	if err != nil {
		return nil, err
	}
	if len(approvers) == 0 {
		return nil, fmt.Errorf("%w: role %s", ErrRoutingTargetMissing, roleID)
	}
	return approvers, nil
}

func (s *ApprovalService) stageRoleErr(roleName string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: stage role %q not configured", ErrRoutingTargetMissing, roleName)
	}
	return err
}

// assignApprovers 为阶段的每个审批人建一条待审记录
func (s *ApprovalService) assignApprovers(tx *gorm.DB, order *entity.Order, roleID string, approvers []entity.Employee) error {
	now := time.Now()
	for _, emp := range approvers {
		approval := entity.OrderApproval{
			ID:         uuid.New().String()[:32],
			OrderID:    order.ID,
			EmployeeID: emp.ID,
			RoleID:     roleID,
			Status:     entity.ApprovalStatusPending,
			AssignedAt: now,
		}
		if err := tx.Create(&approval).Error; err != nil {
			return fmt.Errorf("创建审批分配记录失败: %w", err)
		}
	}
	return nil
}

// supersedePending 将订单上除指定记录外的全部待审记录置为 superseded
func (s *ApprovalService) supersedePending(tx *gorm.DB, orderID, keepID string) error {
	now := time.Now()
	return tx.Model(&entity.OrderApproval{}).
		Where("order_id = ? AND status = ? AND id <> ?", orderID, entity.ApprovalStatusPending, keepID).
		Updates(map[string]interface{}{
			"status":     entity.ApprovalStatusRejected,
			"comment":    entity.ChainActionSuperseded,
			"decided_at": &now,
		}).Error
}

// appendChain 追加审批链条目
func (s *ApprovalService) appendChain(tx *gorm.DB, orderID, actorID, roleID, action, comment string) error {
	entry := entity.ApprovalEntry{
		ID:      uuid.New().String()[:32],
		OrderID: orderID,
		ActorID: actorID,
		RoleID:  roleID,
		Action:  action,
		Comment: comment,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("追加审批链失败: %w", err)
	}
	return nil
}

// enqueueStageNotice 给阶段角色（可限定部门）落发件箱通知
// 发件箱行与业务变更同事务，写入失败同样回滚
func (s *ApprovalService) enqueueStageNotice(tx *gorm.DB, order *entity.Order, roleID, departmentID string, typeID int) error {
	if s.notify == nil {
		return nil
	}
	kind := entity.NotifyTargetRoles
	if departmentID != "" {
		kind = entity.NotifyTargetRoleDept
	}
	return s.notify.EnqueueTx(tx, &entity.Notification{
		TargetKind:   kind,
		Targets:      entity.JSONBArray{roleID},
		DepartmentID: departmentID,
		TypeID:       typeID,
		Message:      fmt.Sprintf("订单 %s（%s）等待审批", order.OrderCode, order.Title),
		OrderID:      order.ID,
	})
}

// enqueueEmployeeNotice 给单个员工落发件箱通知
func (s *ApprovalService) enqueueEmployeeNotice(tx *gorm.DB, order *entity.Order, employeeID string, typeID int, message string) error {
	if s.notify == nil {
		return nil
	}
	return s.notify.EnqueueTx(tx, &entity.Notification{
		TargetKind: entity.NotifyTargetEmployees,
		Targets:    entity.JSONBArray{employeeID},
		TypeID:     typeID,
		Message:    message,
		OrderID:    order.ID,
	})
}

func (s *ApprovalService) dispatchAfterCommit() {
	if s.notify == nil {
		return
	}
	go s.notify.Dispatch(context.Background())
}
