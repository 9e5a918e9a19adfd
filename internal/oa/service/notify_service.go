package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/bitfantasy/nimo-oa/internal/shared/mailer"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NotifyService 通知分发
// 发件箱行在业务事务内写入（EnqueueTx），提交后由 Dispatch 异步投递：
// 解析目标选择器 → 展开收件人（跳过退订类型）→ 站内信 + redis 推送 + 邮件。
// 投递是尽力而为：失败只记录，允许重复投递，不做去重
type NotifyService struct {
	notifRepo    *repository.NotificationRepository
	employeeRepo *repository.EmployeeRepository
	rdb          *redis.Client
	mail         *mailer.Client

	mu sync.Mutex // 同一进程内的 Dispatch 串行执行，避免重复拉取
}

func NewNotifyService(
	notifRepo *repository.NotificationRepository,
	employeeRepo *repository.EmployeeRepository,
	rdb *redis.Client,
	mail *mailer.Client,
) *NotifyService {
	return &NotifyService{
		notifRepo:    notifRepo,
		employeeRepo: employeeRepo,
		rdb:          rdb,
		mail:         mail,
	}
}

// EnqueueTx 在业务事务内落发件箱行
func (s *NotifyService) EnqueueTx(tx *gorm.DB, n *entity.Notification) error {
	return s.notifRepo.CreateTx(tx, n)
}

// Dispatch 投递全部待发通知（事务提交后调用）
func (s *NotifyService) Dispatch(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.notifRepo.FindPending(ctx, 100)
	if err != nil {
		log.Printf("[Notify] 查询待发通知失败: %v", err)
		return
	}

	for _, n := range pending {
		if err := s.deliver(ctx, &n); err != nil {
			log.Printf("[Notify] 投递通知 %s 失败: %v", n.ID, err)
			s.notifRepo.MarkFailed(ctx, n.ID, err.Error())
			continue
		}
		s.notifRepo.MarkSent(ctx, n.ID)
	}
}

// deliver 展开收件人并逐个投递
func (s *NotifyService) deliver(ctx context.Context, n *entity.Notification) error {
	recipients, err := s.resolveTargets(ctx, n)
	if err != nil {
		return err
	}

	for _, emp := range recipients {
		if optedOut(emp, n.TypeID) {
			continue
		}

		if err := s.notifRepo.CreateDelivery(ctx, &entity.NotificationDelivery{
			NotificationID: n.ID,
			EmployeeID:     emp.ID,
			TypeID:         n.TypeID,
			Message:        n.Message,
		}); err != nil {
			log.Printf("[Notify] 写站内信失败 (employee=%s): %v", emp.ID, err)
		}

		// redis 推送给在线前端
		if s.rdb != nil {
			channel := fmt.Sprintf("oa:notify:%s", emp.ID)
			if err := s.rdb.Publish(ctx, channel, n.Message).Err(); err != nil {
				log.Printf("[Notify] redis推送失败 (employee=%s): %v", emp.ID, err)
			}
		}

		// 待审批类通知额外发邮件
		if s.mail != nil && n.TypeID == entity.NotifyTypeOrderPending && emp.Email != "" {
			if err := s.mail.Send(ctx, emp.Email, "待审批订单提醒", n.Message); err != nil {
				log.Printf("[Notify] 发送邮件给[%s]失败: %v", emp.Name, err)
			}
		}
	}
	return nil
}

// resolveTargets 解析目标选择器为员工列表（显式有限变体分发）
func (s *NotifyService) resolveTargets(ctx context.Context, n *entity.Notification) ([]entity.Employee, error) {
	switch n.TargetKind {
	case entity.NotifyTargetEmployees:
		return s.employeeRepo.FindByIDs(ctx, stringSlice(n.Targets))

	case entity.NotifyTargetRoles:
		var all []entity.Employee
		for _, roleID := range stringSlice(n.Targets) {
			emps, err := s.employeeRepo.FindActiveByRole(ctx, roleID)
			if err != nil {
				return nil, err
			}
			all = append(all, emps...)
		}
		return all, nil

	case entity.NotifyTargetRoleDept:
		var all []entity.Employee
		for _, roleID := range stringSlice(n.Targets) {
			emps, err := s.employeeRepo.FindActiveByRoleAndDept(ctx, roleID, n.DepartmentID)
			if err != nil {
				return nil, err
			}
			all = append(all, emps...)
		}
		return all, nil

	default:
		return nil, fmt.Errorf("unknown notification target kind %q", n.TargetKind)
	}
}

// optedOut 员工是否退订了该通知类型
func optedOut(emp entity.Employee, typeID int) bool {
	for _, v := range emp.NotifyOptOuts {
		switch t := v.(type) {
		case float64:
			if int(t) == typeID {
				return true
			}
		case int:
			if t == typeID {
				return true
			}
		}
	}
	return false
}

func stringSlice(arr entity.JSONBArray) []string {
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
