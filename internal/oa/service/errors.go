package service

import "errors"

// 业务错误：事务内一旦发生即整体回滚，不允许半套用
var (
	// ErrValidation 入参缺失或非法，不开启事务
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 订单/合同/角色/对手方不存在
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized 操作者角色不等于当前审批阶段角色
	ErrUnauthorized = errors.New("actor role does not match current approval stage")
	// ErrRoutingTargetMissing 下一阶段角色无人持有，整单回滚，不允许跳过阶段
	ErrRoutingTargetMissing = errors.New("no employee holds the required approval role")
	// ErrStaleStage 决策到达时订单已离开该阶段（终态或被同阶段他人抢先）
	ErrStaleStage = errors.New("order already left this approval stage")
	// ErrLedgerInconsistency 汇总合计为负，增量维护被破坏，视为致命错误
	ErrLedgerInconsistency = errors.New("revenue summary total went negative")
)

// ActorContext 显式操作者上下文：所有审批/合同入口都接收它，绝不读全局会话态
type ActorContext struct {
	EmployeeID   string
	RoleID       string
	DepartmentID string
}
