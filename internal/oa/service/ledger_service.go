package service

import (
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerDelta 一次合同变更对汇总行的增量
// 创建：OldValue=0；删除：NewValue=0；纯附件改动不产生增量
type LedgerDelta struct {
	OldValue   decimal.Decimal
	NewValue   decimal.Decimal
	CountDelta int

	// 仅销售合同
	OldPaid decimal.Decimal
	NewPaid decimal.Decimal
	OldDue  decimal.Decimal
	NewDue  decimal.Decimal
}

// LedgerService 营收汇总增量维护
// 汇总行的唯一合法写入口。严格增量：减旧加新，从不由子合同全量重算。
// 全局不变量（每对手方的小计 == 现存合同 modified_value 之和）完全依赖
// 每条合同变更路径在同一事务内恰好调用一次本服务。
type LedgerService struct {
	revenueRepo *repository.RevenueRepository
}

func NewLedgerService(revenueRepo *repository.RevenueRepository) *LedgerService {
	return &LedgerService{revenueRepo: revenueRepo}
}

// Apply 在调用方事务内对指定对手方应用增量
func (s *LedgerService) Apply(tx *gorm.DB, ref entity.CounterpartyRef, kind entity.ContractKind, delta LedgerDelta) error {
	switch ref.Kind {
	case entity.CounterpartyVendor:
		summary, err := s.revenueRepo.FindOrCreateVendorLocked(tx, ref.ID)
		if err != nil {
			return fmt.Errorf("锁定供应商汇总行失败: %w", err)
		}
		if err := applyDelta(&summary.RevenueTotals, kind, delta); err != nil {
			return err
		}
		summary.UpdatedAt = time.Now()
		return tx.Save(summary).Error

	case entity.CounterpartyCompany:
		summary, err := s.revenueRepo.FindOrCreateCompanyLocked(tx, ref.ID)
		if err != nil {
			return fmt.Errorf("锁定公司汇总行失败: %w", err)
		}
		if err := applyDelta(&summary.RevenueTotals, kind, delta); err != nil {
			return err
		}
		summary.UpdatedAt = time.Now()
		return tx.Save(summary).Error

	default:
		return fmt.Errorf("%w: unknown counterparty kind %q", ErrValidation, ref.Kind)
	}
}

// ApplyAll 对合同引用的全部对手方（0/1/2个）应用同一增量
func (s *LedgerService) ApplyAll(tx *gorm.DB, refs []entity.CounterpartyRef, kind entity.ContractKind, delta LedgerDelta) error {
	for _, ref := range refs {
		if err := s.Apply(tx, ref, kind, delta); err != nil {
			return err
		}
	}
	return nil
}

// applyDelta 减旧加新；派生合计在保存前重算；出现负数说明维护被破坏，整体回滚
func applyDelta(t *entity.RevenueTotals, kind entity.ContractKind, delta LedgerDelta) error {
	switch kind {
	case entity.ContractKindDocument:
		t.OtherContractsTotalValue = t.OtherContractsTotalValue.Sub(delta.OldValue).Add(delta.NewValue)
		t.OtherContractsCount += delta.CountDelta
	case entity.ContractKindSales:
		t.SalesContractsTotalValue = t.SalesContractsTotalValue.Sub(delta.OldValue).Add(delta.NewValue)
		t.SalesContractsCount += delta.CountDelta
		t.RevenueGenerated = t.RevenueGenerated.Sub(delta.OldPaid).Add(delta.NewPaid)
		t.RevenueToBeGenerated = t.RevenueToBeGenerated.Sub(delta.OldDue).Add(delta.NewDue)
	default:
		return fmt.Errorf("%w: unknown contract kind %q", ErrValidation, kind)
	}

	if t.Negative() {
		return ErrLedgerInconsistency
	}

	t.Recalc()
	return nil
}
