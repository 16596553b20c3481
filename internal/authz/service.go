package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	adminObjectRoot = "/admin"
	casbinTableName = "casbin_rule"
	adminSubjectFmt = "admin:%d"
	rolePrefix      = "role:"
	// 角色以 g(role, anchor) 的形式登记，便于在没有成员时也能列出
	roleAnchor = "role:__anchor__"
)

// 后台接口 RBAC：主体为 admin:{id} 或 role:{name}，资源为去掉 /api/v1 的路由模板
const storeRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	ErrUnavailable      = errors.New("authorization service is unavailable")
	ErrAdminRequired    = errors.New("admin id is required")
	ErrRoleRequired     = errors.New("role is required")
	ErrReservedRole     = errors.New("this role name is reserved")
	ErrUnknownRole      = errors.New("role does not exist")
	ErrBuiltinRole      = errors.New("built-in roles cannot be changed")
	ErrInvalidAction    = errors.New("action must be one of GET, POST, PUT, PATCH, DELETE or *")
	ErrObjectNotInAdmin = errors.New("policies can only cover /admin endpoints")
)

var allowedActions = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true, "*": true,
}

// Policy 一条授权策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 后台管理员的 Casbin 授权，策略持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务并加载已有策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, ErrUnavailable
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter: %w", err)
	}
	m, err := model.NewModelFromString(storeRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// EnforceAdmin 判定管理员能否以 method 访问 path
func (s *Service) EnforceAdmin(adminID uint, path, method string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if adminID == 0 {
		return false, ErrAdminRequired
	}
	return s.enforcer.Enforce(SubjectForAdmin(adminID), NormalizeObject(path), NormalizeAction(method))
}

// EnsureRole 登记角色，已存在时直接返回规范化名称
func (s *Service) EnsureRole(role string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor); err != nil {
		return "", fmt.Errorf("create role %s: %w", normalized, err)
	}
	return normalized, nil
}

// ListRoles 已登记的角色，按名称排序
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 1, roleAnchor)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	roles := make([]string, 0, len(rules))
	for _, rule := range rules {
		roles = append(roles, rule[0])
	}
	sort.Strings(roles)
	return roles, nil
}

// GrantRolePolicy 为自定义角色授予后台接口权限，内置角色只读
func (s *Service) GrantRolePolicy(role, object, action string) error {
	if isBuiltinRole(role) {
		return ErrBuiltinRole
	}
	normalizedObject := NormalizeObject(object)
	if !isAdminObject(normalizedObject) {
		return ErrObjectNotInAdmin
	}
	normalizedAction := NormalizeAction(action)
	if !allowedActions[normalizedAction] {
		return ErrInvalidAction
	}
	normalizedRole, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(normalizedRole, normalizedObject, normalizedAction); err != nil {
		return fmt.Errorf("grant policy: %w", err)
	}
	return nil
}

// SetAdminRoles 用给定角色整体替换管理员的角色，角色须已存在
func (s *Service) SetAdminRoles(adminID uint, roles []string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if adminID == 0 {
		return ErrAdminRequired
	}
	known, err := s.ListRoles()
	if err != nil {
		return err
	}
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		name, err := NormalizeRole(role)
		if err != nil {
			return err
		}
		idx := sort.SearchStrings(known, name)
		if idx == len(known) || known[idx] != name {
			return fmt.Errorf("%w: %s", ErrUnknownRole, name)
		}
		normalized = append(normalized, name)
	}

	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear admin roles: %w", err)
	}
	for _, role := range normalized {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role); err != nil {
			return fmt.Errorf("assign role %s: %w", role, err)
		}
	}
	return nil
}

// GetAdminRoles 管理员直接拥有的角色
func (s *Service) GetAdminRoles(adminID uint) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if adminID == 0 {
		return nil, ErrAdminRequired
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin roles: %w", err)
	}
	filtered := make([]string, 0, len(roles))
	for _, role := range roles {
		if strings.HasPrefix(role, rolePrefix) && role != roleAnchor {
			filtered = append(filtered, role)
		}
	}
	sort.Strings(filtered)
	return filtered, nil
}

// GetAdminPolicies 管理员实际生效的策略，包含继承角色
func (s *Service) GetAdminPolicies(adminID uint) ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if adminID == 0 {
		return nil, ErrAdminRequired
	}
	rules, err := s.enforcer.GetImplicitPermissionsForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin policies: %w", err)
	}
	seen := make(map[Policy]struct{}, len(rules))
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policy := Policy{Subject: rule[0], Object: NormalizeObject(rule[1]), Action: NormalizeAction(rule[2])}
		if _, dup := seen[policy]; dup {
			continue
		}
		seen[policy] = struct{}{}
		policies = append(policies, policy)
	}
	sort.Slice(policies, func(i, j int) bool {
		a, b := policies[i], policies[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Action < b.Action
	})
	return policies, nil
}

// SubjectForAdmin 管理员主体标识 admin:{id}
func SubjectForAdmin(adminID uint) string {
	return fmt.Sprintf(adminSubjectFmt, adminID)
}

// NormalizeRole 角色名补全 role: 前缀，空格替换为下划线
func NormalizeRole(role string) (string, error) {
	name := strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(role), " ", "_"), rolePrefix)
	if name == "" {
		return "", ErrRoleRequired
	}
	normalized := rolePrefix + strings.ToLower(name)
	if normalized == roleAnchor {
		return "", ErrReservedRole
	}
	return normalized, nil
}

// NormalizeObject 路由统一去掉 /api/v1 前缀
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	return normalized
}

// NormalizeAction HTTP 方法统一大写
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}

func isAdminObject(object string) bool {
	return object == adminObjectRoot || strings.HasPrefix(object, adminObjectRoot+"/")
}

func isBuiltinRole(role string) bool {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return false
	}
	for _, seed := range BuiltinRoleSeeds() {
		if seed.Immutable && rolePrefix+seed.Role == normalized {
			return true
		}
	}
	return false
}
