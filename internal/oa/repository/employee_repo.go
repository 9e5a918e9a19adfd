package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"gorm.io/gorm"
)

// EmployeeRepository 员工/角色/部门仓库
type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// FindByID 根据ID查找员工（含角色）
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*entity.Employee, error) {
	var emp entity.Employee
	err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Department").
		Where("id = ?", id).
		First(&emp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &emp, nil
}

// FindRoleByName 按名称查找角色（审批链节点用名称解析，不写死ID）
func (r *EmployeeRepository) FindRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	var role entity.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// FindRoleByID 根据ID查找角色
func (r *EmployeeRepository) FindRoleByID(ctx context.Context, id string) (*entity.Role, error) {
	var role entity.Role
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// FindActiveByRole 查找持有指定角色的在职员工
func (r *EmployeeRepository) FindActiveByRole(ctx context.Context, roleID string) ([]entity.Employee, error) {
	var emps []entity.Employee
	err := r.db.WithContext(ctx).
		Where("role_id = ? AND status = ?", roleID, entity.EmployeeStatusActive).
		Find(&emps).Error
	return emps, err
}

// FindActiveByRoleAndDept 查找指定部门内持有指定角色的在职员工
func (r *EmployeeRepository) FindActiveByRoleAndDept(ctx context.Context, roleID, departmentID string) ([]entity.Employee, error) {
	var emps []entity.Employee
	err := r.db.WithContext(ctx).
		Where("role_id = ? AND department_id = ? AND status = ?", roleID, departmentID, entity.EmployeeStatusActive).
		Find(&emps).Error
	return emps, err
}

// FindByIDs 批量查找员工
func (r *EmployeeRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Employee, error) {
	if len(ids) == 0 {
		return []entity.Employee{}, nil
	}
	var emps []entity.Employee
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&emps).Error
	return emps, err
}
