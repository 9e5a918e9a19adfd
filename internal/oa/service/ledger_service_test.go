package service_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/bitfantasy/nimo-oa/internal/oa/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type contractEnv struct {
	db     *gorm.DB
	repos  *repository.Repositories
	ledger *service.LedgerService
	docSvc *service.DocumentService
	scSvc  *service.SalesContractService
	actor  service.ActorContext
}

func newContractEnv(t *testing.T) *contractEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	ledger := service.NewLedgerService(repos.Revenue)

	role := testutil.SeedRole(t, db, "role-staff", entity.RoleNameStaff, 0)
	dept := testutil.SeedDepartment(t, db, "dept-1", "行政部")
	emp := testutil.SeedEmployee(t, db, "emp-1", "测试员工", role.ID, dept.ID)

	return &contractEnv{
		db:     db,
		repos:  repos,
		ledger: ledger,
		docSvc: service.NewDocumentService(repos.Document, repos.Vendor, repos.Company, repos.Audit, ledger, db),
		scSvc:  service.NewSalesContractService(repos.SalesContract, repos.Vendor, repos.Company, repos.Audit, ledger, db),
		actor:  service.ActorContext{EmployeeID: emp.ID, RoleID: role.ID, DepartmentID: dept.ID},
	}
}

func (e *contractEnv) vendorSummary(t *testing.T, vendorID string) *entity.VendorRevenueSummary {
	t.Helper()
	summary, err := e.repos.Revenue.FindByVendorID(context.Background(), vendorID)
	require.NoError(t, err)
	return summary
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func strPtr(s string) *string { return &s }

func TestDocumentLifecycleMaintainsVendorSummary(t *testing.T) {
	env := newContractEnv(t)
	ctx := context.Background()
	vendor := testutil.SeedVendor(t, env.db, "vnd-1", "VND-2026-0001", "测试供应商")

	doc, err := env.docSvc.Create(ctx, env.actor, &service.CreateDocumentRequest{
		Title:         "设备维保合同",
		ContractValue: dec(1000),
		ChangeOrder:   dec(200),
		VendorID:      &vendor.ID,
	})
	require.NoError(t, err)
	assert.True(t, doc.ModifiedValue.Equal(dec(1200)))

	summary := env.vendorSummary(t, vendor.ID)
	assert.True(t, summary.OtherContractsTotalValue.Equal(dec(1200)))
	assert.Equal(t, 1, summary.OtherContractsCount)
	assert.True(t, summary.ContractsTotalValue.Equal(dec(1200)))
	assert.Equal(t, 1, summary.ContractsCount)

	// 修改变更单金额：减旧加新
	_, err = env.docSvc.Update(ctx, env.actor, doc.ID, &service.UpdateDocumentRequest{
		ChangeOrder: decPtr(dec(-100)),
	})
	require.NoError(t, err)

	summary = env.vendorSummary(t, vendor.ID)
	assert.True(t, summary.OtherContractsTotalValue.Equal(dec(900)))
	assert.Equal(t, 1, summary.OtherContractsCount)

	// 删除：冲回全部贡献
	require.NoError(t, env.docSvc.Delete(ctx, env.actor, doc.ID))

	summary = env.vendorSummary(t, vendor.ID)
	assert.True(t, summary.OtherContractsTotalValue.IsZero())
	assert.Equal(t, 0, summary.OtherContractsCount)
	assert.Equal(t, 0, summary.ContractsCount)
}

func TestSalesContractMaintainsPaidAndDue(t *testing.T) {
	env := newContractEnv(t)
	ctx := context.Background()
	vendor := testutil.SeedVendor(t, env.db, "vnd-1", "VND-2026-0001", "测试供应商")

	sc, err := env.scSvc.Create(ctx, env.actor, &service.CreateSalesContractRequest{
		Title:         "年度销售协议",
		ContractValue: dec(10000),
		Adjustment:    dec(-1000),
		TotalPaid:     dec(2000),
		VendorID:      &vendor.ID,
	})
	require.NoError(t, err)
	assert.True(t, sc.ModifiedValue.Equal(dec(9000)))
	assert.True(t, sc.DuePayment.Equal(dec(7000)))

	summary := env.vendorSummary(t, vendor.ID)
	assert.True(t, summary.SalesContractsTotalValue.Equal(dec(9000)))
	assert.Equal(t, 1, summary.SalesContractsCount)
	assert.True(t, summary.RevenueGenerated.Equal(dec(2000)))
	assert.True(t, summary.RevenueToBeGenerated.Equal(dec(7000)))

	// 回款推进
	_, err = env.scSvc.Update(ctx, env.actor, sc.ID, &service.UpdateSalesContractRequest{
		TotalPaid: decPtr(dec(5000)),
	})
	require.NoError(t, err)

	summary = env.vendorSummary(t, vendor.ID)
	assert.True(t, summary.RevenueGenerated.Equal(dec(5000)))
	assert.True(t, summary.RevenueToBeGenerated.Equal(dec(4000)))
	assert.True(t, summary.SalesContractsTotalValue.Equal(dec(9000)))
}

func TestAttachmentOnlyUpdateLeavesSummaryUntouched(t *testing.T) {
	env := newContractEnv(t)
	ctx := context.Background()
	vendor := testutil.SeedVendor(t, env.db, "vnd-1", "VND-2026-0001", "测试供应商")

	doc, err := env.docSvc.Create(ctx, env.actor, &service.CreateDocumentRequest{
		Title:         "租赁合同",
		ContractValue: dec(3000),
		VendorID:      &vendor.ID,
	})
	require.NoError(t, err)

	before := env.vendorSummary(t, vendor.ID)

	_, err = env.docSvc.Update(ctx, env.actor, doc.ID, &service.UpdateDocumentRequest{
		AttachmentName: strPtr("contract-v2.pdf"),
		AttachmentURL:  strPtr("https://files.example.com/contract-v2.pdf"),
	})
	require.NoError(t, err)

	after := env.vendorSummary(t, vendor.ID)
	assert.Equal(t, before.RevenueTotals, after.RevenueTotals)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestContractWithBothCounterpartiesUpdatesBothSummaries(t *testing.T) {
	env := newContractEnv(t)
	ctx := context.Background()
	vendor := testutil.SeedVendor(t, env.db, "vnd-1", "VND-2026-0001", "测试供应商")
	company := testutil.SeedCompany(t, env.db, "cmp-1", "CMP-2026-0001", "测试公司")

	_, err := env.docSvc.Create(ctx, env.actor, &service.CreateDocumentRequest{
		Title:         "三方合作合同",
		ContractValue: dec(8000),
		VendorID:      &vendor.ID,
		CompanyID:     &company.ID,
	})
	require.NoError(t, err)

	vs := env.vendorSummary(t, vendor.ID)
	assert.True(t, vs.OtherContractsTotalValue.Equal(dec(8000)))

	cs, err := env.repos.Revenue.FindByCompanyID(ctx, company.ID)
	require.NoError(t, err)
	assert.True(t, cs.OtherContractsTotalValue.Equal(dec(8000)))
	assert.Equal(t, 1, cs.OtherContractsCount)
}

func TestContractWithoutCounterpartyTouchesNoSummary(t *testing.T) {
	env := newContractEnv(t)
	ctx := context.Background()

	_, err := env.docSvc.Create(ctx, env.actor, &service.CreateDocumentRequest{
		Title:         "内部框架协议",
		ContractValue: dec(5000),
	})
	require.NoError(t, err)

	var vendorRows, companyRows int64
	require.NoError(t, env.db.Model(&entity.VendorRevenueSummary{}).Count(&vendorRows).Error)
	require.NoError(t, env.db.Model(&entity.CompanyRevenueSummary{}).Count(&companyRows).Error)
	assert.Zero(t, vendorRows)
	assert.Zero(t, companyRows)
}

func TestCreateWithUnknownVendorFails(t *testing.T) {
	env := newContractEnv(t)

	_, err := env.docSvc.Create(context.Background(), env.actor, &service.CreateDocumentRequest{
		Title:         "无效合同",
		ContractValue: dec(100),
		VendorID:      strPtr("no-such-vendor"),
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLedgerInconsistencyAbortsTransaction(t *testing.T) {
	env := newContractEnv(t)
	ctx := context.Background()
	vendor := testutil.SeedVendor(t, env.db, "vnd-1", "VND-2026-0001", "测试供应商")

	_, err := env.docSvc.Create(ctx, env.actor, &service.CreateDocumentRequest{
		Title:         "基线合同",
		ContractValue: dec(1000),
		VendorID:      &vendor.ID,
	})
	require.NoError(t, err)

	before := env.vendorSummary(t, vendor.ID)

	// 伪造一个会把小计减到负数的增量，必须整体回滚而不是截断为零
	err = env.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return env.ledger.Apply(tx,
			entity.CounterpartyRef{Kind: entity.CounterpartyVendor, ID: vendor.ID},
			entity.ContractKindDocument,
			service.LedgerDelta{OldValue: dec(99999)},
		)
	})
	assert.ErrorIs(t, err, service.ErrLedgerInconsistency)

	after := env.vendorSummary(t, vendor.ID)
	assert.Equal(t, before.RevenueTotals, after.RevenueTotals)
}

// 随机操作序列下，汇总行必须始终等于现存合同的直接求和
func TestRandomizedOperationsPreserveInvariant(t *testing.T) {
	env := newContractEnv(t)
	ctx := context.Background()
	vendor := testutil.SeedVendor(t, env.db, "vnd-1", "VND-2026-0001", "测试供应商")

	rng := rand.New(rand.NewSource(42))
	var docIDs, scIDs []string

	checkInvariant := func() {
		t.Helper()
		summary, err := env.repos.Revenue.FindByVendorID(ctx, vendor.ID)
		if err != nil {
			require.ErrorIs(t, err, repository.ErrNotFound)
			return
		}

		var docs []entity.Document
		require.NoError(t, env.db.Where("vendor_id = ?", vendor.ID).Find(&docs).Error)
		expectedOther := decimal.Zero
		for _, d := range docs {
			expectedOther = expectedOther.Add(d.ModifiedValue)
		}

		var scs []entity.SalesContract
		require.NoError(t, env.db.Where("vendor_id = ?", vendor.ID).Find(&scs).Error)
		expectedSales, expectedPaid, expectedDue := decimal.Zero, decimal.Zero, decimal.Zero
		for _, sc := range scs {
			expectedSales = expectedSales.Add(sc.ModifiedValue)
			expectedPaid = expectedPaid.Add(sc.TotalPaid)
			expectedDue = expectedDue.Add(sc.DuePayment)
		}

		assert.True(t, summary.OtherContractsTotalValue.Equal(expectedOther),
			"other total: got %s want %s", summary.OtherContractsTotalValue, expectedOther)
		assert.Equal(t, len(docs), summary.OtherContractsCount)
		assert.True(t, summary.SalesContractsTotalValue.Equal(expectedSales),
			"sales total: got %s want %s", summary.SalesContractsTotalValue, expectedSales)
		assert.Equal(t, len(scs), summary.SalesContractsCount)
		assert.True(t, summary.RevenueGenerated.Equal(expectedPaid))
		assert.True(t, summary.RevenueToBeGenerated.Equal(expectedDue))
		assert.True(t, summary.ContractsTotalValue.Equal(expectedOther.Add(expectedSales)))
		assert.Equal(t, len(docs)+len(scs), summary.ContractsCount)
	}

	for i := 0; i < 60; i++ {
		switch op := rng.Intn(6); op {
		case 0:
			doc, err := env.docSvc.Create(ctx, env.actor, &service.CreateDocumentRequest{
				Title:         "随机合同",
				ContractValue: dec(float64(rng.Intn(10000) + 1)),
				ChangeOrder:   dec(float64(rng.Intn(500))),
				VendorID:      &vendor.ID,
			})
			require.NoError(t, err)
			docIDs = append(docIDs, doc.ID)
		case 1:
			value := float64(rng.Intn(10000) + 100)
			paid := float64(rng.Intn(int(value)))
			sc, err := env.scSvc.Create(ctx, env.actor, &service.CreateSalesContractRequest{
				Title:         "随机销售合同",
				ContractValue: dec(value),
				TotalPaid:     dec(paid),
				VendorID:      &vendor.ID,
			})
			require.NoError(t, err)
			scIDs = append(scIDs, sc.ID)
		case 2:
			if len(docIDs) == 0 {
				continue
			}
			id := docIDs[rng.Intn(len(docIDs))]
			_, err := env.docSvc.Update(ctx, env.actor, id, &service.UpdateDocumentRequest{
				ContractValue: decPtr(dec(float64(rng.Intn(10000) + 1))),
			})
			require.NoError(t, err)
		case 3:
			if len(scIDs) == 0 {
				continue
			}
			id := scIDs[rng.Intn(len(scIDs))]
			_, err := env.scSvc.Update(ctx, env.actor, id, &service.UpdateSalesContractRequest{
				TotalPaid: decPtr(dec(float64(rng.Intn(1000)))),
			})
			require.NoError(t, err)
		case 4:
			if len(docIDs) == 0 {
				continue
			}
			idx := rng.Intn(len(docIDs))
			require.NoError(t, env.docSvc.Delete(ctx, env.actor, docIDs[idx]))
			docIDs = append(docIDs[:idx], docIDs[idx+1:]...)
		case 5:
			if len(scIDs) == 0 {
				continue
			}
			idx := rng.Intn(len(scIDs))
			require.NoError(t, env.scSvc.Delete(ctx, env.actor, scIDs[idx]))
			scIDs = append(scIDs[:idx], scIDs[idx+1:]...)
		}
		checkInvariant()
	}
}

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }
