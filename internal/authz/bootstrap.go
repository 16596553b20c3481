package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 商城后台预置角色：审计只读，商品运营、履约、财务各管一块
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role:     "merchandising",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/offers", Action: "*"},
				{Object: "/admin/offers/:id", Action: "*"},
				{Object: "/admin/offers/:id/status", Action: "PATCH"},
				{Object: "/admin/offers/expire", Action: "POST"},
				{Object: "/admin/coupons", Action: "*"},
			},
			Immutable: true,
		},
		{
			Role:     "fulfilment",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/orders/:order_no/status", Action: "PATCH"},
				{Object: "/admin/order-items/:id/return/approve", Action: "POST"},
				{Object: "/admin/order-items/:id/return/reject", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     "finance",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/reports/*", Action: "GET"},
				{Object: "/admin/wallets/:user_id/ledger", Action: "GET"},
				{Object: "/admin/wallets/:user_id/transactions", Action: "GET"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色、继承关系与策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link %s to %s: %w", role, parentRole, err)
			}
		}
		for _, policy := range seed.Policies {
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), NormalizeAction(policy.Action)); err != nil {
				return fmt.Errorf("add builtin policy for %s: %w", role, err)
			}
		}
	}
	return nil
}
