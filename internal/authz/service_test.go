package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	svc, err := NewService(db)
	require.NoError(t, err)
	return svc
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.GrantRolePolicy("ops", "/admin/orders/:order_no/status", "PATCH"))
	require.NoError(t, svc.SetAdminRoles(1, []string{"ops"}))

	allow, err := svc.EnforceAdmin(1, "/api/v1/admin/orders/TS2026030112000001/status", "patch")
	require.NoError(t, err)
	assert.True(t, allow)

	allow, err = svc.EnforceAdmin(1, "/api/v1/admin/orders/TS2026030112000001/status", "DELETE")
	require.NoError(t, err)
	assert.False(t, allow)

	_, err = svc.EnforceAdmin(0, "/admin/orders", "GET")
	assert.ErrorIs(t, err, ErrAdminRequired)
}

func TestSetAdminRolesReplacesRoles(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.GrantRolePolicy("ops", "/admin/orders", "GET"))
	require.NoError(t, svc.GrantRolePolicy("Stock Desk", "/admin/reports/stock", "GET"))

	require.NoError(t, svc.SetAdminRoles(2, []string{"ops"}))
	roles, err := svc.GetAdminRoles(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"role:ops"}, roles)

	require.NoError(t, svc.SetAdminRoles(2, []string{"role:stock_desk"}))
	roles, err = svc.GetAdminRoles(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"role:stock_desk"}, roles)

	allow, err := svc.EnforceAdmin(2, "/admin/orders", "GET")
	require.NoError(t, err)
	assert.False(t, allow, "old role permission removed")
	allow, err = svc.EnforceAdmin(2, "/admin/reports/stock", "GET")
	require.NoError(t, err)
	assert.True(t, allow)
}

func TestSetAdminRolesRejectsUnknownRole(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.GrantRolePolicy("ops", "/admin/orders", "GET"))
	require.NoError(t, svc.SetAdminRoles(4, []string{"ops"}))

	err := svc.SetAdminRoles(4, []string{"ops", "warehouse"})
	require.ErrorIs(t, err, ErrUnknownRole)
	roles, err := svc.GetAdminRoles(4)
	require.NoError(t, err)
	assert.Equal(t, []string{"role:ops"}, roles, "a rejected update keeps existing roles")

	assert.ErrorIs(t, svc.SetAdminRoles(0, nil), ErrAdminRequired)
}

func TestGrantRolePolicyValidation(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.BootstrapBuiltinRoles())

	cases := []struct {
		name         string
		role, object string
		action       string
		want         error
	}{
		{"built-in role", "finance", "/admin/orders", "GET", ErrBuiltinRole},
		{"built-in role with prefix", "role:fulfilment", "/admin/coupons", "POST", ErrBuiltinRole},
		{"storefront endpoint", "support", "/api/v1/orders", "GET", ErrObjectNotInAdmin},
		{"unknown verb", "support", "/admin/orders", "PURGE", ErrInvalidAction},
		{"empty role", " ", "/admin/orders", "GET", ErrRoleRequired},
		{"anchor role", "__anchor__", "/admin/orders", "GET", ErrReservedRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.GrantRolePolicy(tc.role, tc.object, tc.action), tc.want)
		})
	}
	assert.NoError(t, svc.GrantRolePolicy("support", "/api/v1/admin/orders/:order_no", "get"))
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/orders/:order_no", want: "/admin/orders/:order_no"},
		{in: "/admin/orders/:order_no", want: "/admin/orders/:order_no"},
		{in: "admin/coupons", want: "/admin/coupons"},
		{in: "/api/v1", want: "/"},
		{in: "/api/v10/admin", want: "/api/v10/admin"},
		{in: "", want: "/"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeObject(tc.in), tc.in)
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.BootstrapBuiltinRoles())
	require.NoError(t, svc.BootstrapBuiltinRoles(), "bootstrap is repeatable")

	roles, err := svc.ListRoles()
	require.NoError(t, err)
	assert.Equal(t, []string{"role:finance", "role:fulfilment", "role:merchandising", "role:readonly_auditor"}, roles)

	require.NoError(t, svc.SetAdminRoles(3, []string{"merchandising"}))
	checks := []struct {
		path, method string
		want         bool
	}{
		{"/admin/offers/7", "PUT", true},
		{"/admin/coupons", "POST", true},
		{"/admin/orders/TS1/status", "PATCH", false},
		{"/admin/reports/sales", "GET", true},
		{"/admin/wallets/5/ledger", "POST", false},
	}
	for _, check := range checks {
		allow, err := svc.EnforceAdmin(3, check.path, check.method)
		require.NoError(t, err)
		assert.Equal(t, check.want, allow, "%s %s", check.method, check.path)
	}

	policies, err := svc.GetAdminPolicies(3)
	require.NoError(t, err)
	assert.Contains(t, policies, Policy{Subject: "role:merchandising", Object: "/admin/coupons", Action: "*"})
	assert.Contains(t, policies, Policy{Subject: "role:readonly_auditor", Object: "/admin/*", Action: "GET"}, "inherited policies are listed")
}
