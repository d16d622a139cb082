package auth

import (
	"context"
	"fmt"
	"log/slog"

	"hoponhopoff/internal/domain/model"
	"hoponhopoff/internal/repository"
)

// 権限コード
const (
	PermAssignRole      = "can_assign_role"
	PermGrantPermission = "can_grant_permission"
	PermManageRole      = "can_manage_role"
	PermViewUser        = "can_view_user"
	PermCreateTour      = "can_create_tour"
	PermUpdateTour      = "can_update_tour"
	PermDeleteTour      = "can_delete_tour"
	PermViewTour        = "view_tour"
)

const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

var defaultPermissions = []CreatePermissionInput{
	{Name: "Assign role", Code: PermAssignRole, Module: "user", Action: "assign_role"},
	{Name: "Grant permission", Code: PermGrantPermission, Module: "user", Action: "grant_permission"},
	{Name: "Manage role", Code: PermManageRole, Module: "role", Action: "manage"},
	{Name: "View user", Code: PermViewUser, Module: "user", Action: "view"},
	{Name: "Create tour", Code: PermCreateTour, Module: "tour", Action: "create"},
	{Name: "Update tour", Code: PermUpdateTour, Module: "tour", Action: "update"},
	{Name: "Delete tour", Code: PermDeleteTour, Module: "tour", Action: "delete"},
	{Name: "View tour", Code: PermViewTour, Module: "tour", Action: "view"},
}

// adminは全権限
var defaultRoles = []struct {
	in    CreateRoleInput
	perms []string
}{
	{CreateRoleInput{Name: "Admin", Code: RoleAdmin, Description: "full access"}, nil},
	{CreateRoleInput{Name: "Staff", Code: RoleStaff, Description: "tour operations"},
		[]string{PermViewUser, PermCreateTour, PermUpdateTour, PermViewTour}},
	{CreateRoleInput{Name: "Customer", Code: RoleCustomer, Description: "booking customer"},
		[]string{PermViewTour}},
}

// 初期管理者（空なら作らない）
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// 初期データ投入。何回実行しても同じ状態になる。
type Seeder struct {
	roles  repository.RoleRepository
	users  repository.UserRepository
	tx     repository.TransactionManager
	hasher PasswordHasher
	clock  Clock
	logger *slog.Logger
}

func NewSeeder(
	roles repository.RoleRepository,
	users repository.UserRepository,
	tx repository.TransactionManager,
	hasher PasswordHasher,
	clock Clock,
	logger *slog.Logger,
) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{roles: roles, users: users, tx: tx, hasher: hasher, clock: clock, logger: logger}
}

func (s *Seeder) Run(ctx context.Context, admin AdminAccount) error {
	permIDs := make(map[string]int64, len(defaultPermissions))
	for _, in := range defaultPermissions {
		perm, ok, err := s.roles.FindPermissionByCode(ctx, in.Code)
		if err != nil {
			return fmt.Errorf("find permission %s: %w", in.Code, err)
		}
		if !ok {
			perm = &model.Permission{Name: in.Name, Code: in.Code, Module: in.Module, Action: in.Action, IsActive: true}
			if err := s.roles.CreatePermission(ctx, perm); err != nil {
				return fmt.Errorf("create permission %s: %w", in.Code, err)
			}
			s.logger.InfoContext(ctx, "seeded permission", "code", in.Code)
		}
		permIDs[in.Code] = perm.ID
	}

	roleIDs := make(map[string]int64, len(defaultRoles))
	for _, def := range defaultRoles {
		role, ok, err := s.roles.FindRoleByCode(ctx, def.in.Code)
		if err != nil {
			return fmt.Errorf("find role %s: %w", def.in.Code, err)
		}
		if !ok {
			role = &model.Role{Name: def.in.Name, Code: def.in.Code, Description: def.in.Description, IsActive: true}
			if err := s.roles.CreateRole(ctx, role); err != nil {
				return fmt.Errorf("create role %s: %w", def.in.Code, err)
			}
			s.logger.InfoContext(ctx, "seeded role", "code", def.in.Code)
		}
		roleIDs[def.in.Code] = role.ID

		codes := def.perms
		if def.in.Code == RoleAdmin {
			codes = make([]string, 0, len(defaultPermissions))
			for _, p := range defaultPermissions {
				codes = append(codes, p.Code)
			}
		}
		for _, code := range codes {
			if err := s.roles.GrantRolePermission(ctx, role.ID, permIDs[code]); err != nil {
				return fmt.Errorf("grant %s to %s: %w", code, def.in.Code, err)
			}
		}
	}

	if admin.Username == "" {
		return nil
	}
	return s.ensureAdmin(ctx, admin, roleIDs[RoleAdmin])
}

func (s *Seeder) ensureAdmin(ctx context.Context, admin AdminAccount, adminRoleID int64) error {
	user, ok, err := s.users.FindByUsername(ctx, admin.Username)
	if err != nil {
		return fmt.Errorf("find admin user: %w", err)
	}

	if !ok {
		hashed, err := s.hasher.Hash(admin.Password)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		now := s.clock.Now()
		user = &model.User{
			Username:     admin.Username,
			Email:        admin.Email,
			PasswordHash: hashed,
			IsActive:     true,
			IsStaff:      true,
			IsSuperuser:  true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = s.tx.WithinTx(ctx, func(r repository.TxRepos) error {
			if err := r.Users().Create(ctx, user); err != nil {
				return err
			}
			return r.Profiles().Create(ctx, &model.Profile{UserID: user.ID, CreatedAt: now, UpdatedAt: now})
		})
		if err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		s.logger.InfoContext(ctx, "seeded admin user", "user_id", user.ID, "username", user.Username)
	}

	if err := s.roles.AssignUserRole(ctx, user.ID, adminRoleID); err != nil {
		return fmt.Errorf("assign admin role: %w", err)
	}
	return nil
}
