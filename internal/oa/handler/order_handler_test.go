package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-oa/internal/config"
	"github.com/bitfantasy/nimo-oa/internal/middleware"
	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/bitfantasy/nimo-oa/internal/oa/testutil"
)

func setupOrderTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	stages := config.ApprovalConfig{
		ManagerRole:  entity.RoleNameDirectManager,
		MonetaryRole: entity.RoleNameMonetary,
		CEORole:      entity.RoleNameCEO,
	}
	notifySvc := service.NewNotifyService(repos.Notification, repos.Employee, nil, nil)
	ledgerSvc := service.NewLedgerService(repos.Revenue)
	approvalSvc := service.NewApprovalService(repos.Order, repos.Employee, repos.Audit, notifySvc, stages, db)
	documentSvc := service.NewDocumentService(repos.Document, repos.Vendor, repos.Company, repos.Audit, ledgerSvc, db)
	salesConSvc := service.NewSalesContractService(repos.SalesContract, repos.Vendor, repos.Company, repos.Audit, ledgerSvc, db)
	counterpartySvc := service.NewCounterpartyService(repos.Vendor, repos.Company, repos.Revenue)

	h := NewHandlers(approvalSvc, documentSvc, salesConSvc, counterpartySvc, repos.Audit, repos.Notification, repos.Employee)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/oa")
	api.GET("/orders", h.Order.List)
	api.GET("/orders/pending", h.Order.ListPending)
	api.GET("/orders/:id", h.Order.Get)
	api.POST("/orders", h.Order.Create)
	api.POST("/orders/:id/decide", h.Order.Decide)
	api.GET("/orders/:id/audit", middleware.RequireRole("oa_admin"), h.Order.Audit)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedOrderTestData(t *testing.T, env *testutil.TestEnv) (requesterID, managerID string) {
	t.Helper()
	staff := testutil.SeedRole(t, env.DB, "role-staff", entity.RoleNameStaff, 100)
	manager := testutil.SeedRole(t, env.DB, "role-mgr", entity.RoleNameDirectManager, 500)
	testutil.SeedRole(t, env.DB, "role-fin", entity.RoleNameMonetary, 0)
	testutil.SeedRole(t, env.DB, "role-ceo", entity.RoleNameCEO, 0)
	dept := testutil.SeedDepartment(t, env.DB, "dept-1", "研发部")

	req := testutil.SeedEmployee(t, env.DB, "emp-req", "申请人", staff.ID, dept.ID)
	mgr := testutil.SeedEmployee(t, env.DB, "emp-mgr", "主管", manager.ID, dept.ID)
	return req.ID, mgr.ID
}

func TestCreateOrderEndpoint(t *testing.T) {
	env := setupOrderTest(t)
	requesterID, _ := seedOrderTestData(t, env)
	token := testutil.GenerateTestToken(requesterID, "申请人", "req@test.com", nil, nil)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/oa/orders", map[string]interface{}{
		"title": "新显示器",
		"price": "3000",
	}, token)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object, got %v", resp)
	}
	if data["final_status"] != entity.OrderStatusPending {
		t.Errorf("Expected pending order, got %v", data["final_status"])
	}
	if data["order_code"] == "" {
		t.Error("Expected generated order code")
	}
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	env := setupOrderTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/oa/orders", map[string]interface{}{
		"title": "未登录",
		"price": "100",
	}, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
}

func TestDecideEndpointFlow(t *testing.T) {
	env := setupOrderTest(t)
	requesterID, managerID := seedOrderTestData(t, env)
	reqToken := testutil.GenerateTestToken(requesterID, "申请人", "req@test.com", nil, nil)
	mgrToken := testutil.GenerateTestToken(managerID, "主管", "mgr@test.com", nil, nil)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/oa/orders", map[string]interface{}{
		"title": "测试服务器",
		"price": "8000",
	}, reqToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create order: %d %s", w.Code, w.Body.String())
	}
	orderID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// 主管的待办里能看到
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/oa/orders/pending", nil, mgrToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to list pending: %d %s", w.Code, w.Body.String())
	}

	// 申请人无权决策
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/oa/orders/"+orderID+"/decide", map[string]interface{}{
		"decision": "approved",
	}, reqToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for requester decision, got %d", w.Code)
	}

	// 主管驳回 → 终态
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/oa/orders/"+orderID+"/decide", map[string]interface{}{
		"decision": "rejected",
		"comment":  "超预算",
	}, mgrToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to reject: %d %s", w.Code, w.Body.String())
	}

	// 重复决策 → 409
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/oa/orders/"+orderID+"/decide", map[string]interface{}{
		"decision": "approved",
	}, mgrToken)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on terminal order, got %d: %s", w.Code, w.Body.String())
	}
}

func TestOrderAuditRequiresAdminRole(t *testing.T) {
	env := setupOrderTest(t)
	requesterID, _ := seedOrderTestData(t, env)
	plainToken := testutil.GenerateTestToken(requesterID, "申请人", "req@test.com", nil, nil)
	adminToken := testutil.GenerateTestToken(requesterID, "申请人", "req@test.com", []string{"oa_admin"}, nil)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/oa/orders", map[string]interface{}{
		"title": "审计测试",
		"price": "3000",
	}, plainToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create order: %d %s", w.Code, w.Body.String())
	}
	orderID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// 无管理员角色 → 403
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/oa/orders/"+orderID+"/audit", nil, plainToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 without admin role, got %d", w.Code)
	}

	// 管理员可以看到创建动作的审计记录
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/oa/orders/"+orderID+"/audit", nil, adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to read audit log: %d %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items, ok := data["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("Expected one audit entry, got %v", data["items"])
	}
	if items[0].(map[string]interface{})["operation"] != entity.AuditOpCreate {
		t.Errorf("Expected CREATE audit entry, got %v", items[0])
	}
}

func TestGetOrderNotFound(t *testing.T) {
	env := setupOrderTest(t)
	requesterID, _ := seedOrderTestData(t, env)
	token := testutil.GenerateTestToken(requesterID, "申请人", "req@test.com", nil, nil)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/oa/orders/no-such-order", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
}
