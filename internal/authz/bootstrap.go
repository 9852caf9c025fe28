package authz

import "fmt"

// 预置角色
const (
	RoleAuditor          = "readonly_auditor"
	RolePromotionManager = "promotion_manager"
	RoleOrderOperator    = "order_operator"
	RoleSuperAdmin       = "super_admin"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleAuditor,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     RolePromotionManager,
			Inherits: []string{RoleAuditor},
			Policies: []Policy{
				{Object: "/admin/promotions", Action: "*"},
				{Object: "/admin/promotions/:id", Action: "*"},
				{Object: "/admin/promotions/:id/deactivate", Action: "POST"},
			},
		},
		{
			Role:     RoleOrderOperator,
			Inherits: []string{RoleAuditor},
			Policies: []Policy{
				{Object: "/admin/orders/:id/paid", Action: "POST"},
				{Object: "/admin/orders/:id/adjustments", Action: "PATCH"},
			},
		},
		{
			Role:     RoleSuperAdmin,
			Inherits: []string{RolePromotionManager, RoleOrderOperator},
			Policies: []Policy{
				{Object: "/admin/authz/admins/:id/roles", Action: "PUT"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与策略（幂等）
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.ensureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.ensureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return err
			}
		}
	}
	return nil
}
