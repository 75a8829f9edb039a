package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/domain/entity"
)

// uniqueViolation is the postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const userColumns = `id, username, password, real_name, email, phone, avatar, status, tenant_id, created_at, updated_at`

type UserRepositoryAdapter struct {
	db *sql.DB
}

// NewUserRepositoryAdapter reads users, roles and permissions from the
// sys_* tables created by the migrations.
func NewUserRepositoryAdapter(db *sql.DB) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&user.RealName,
		&user.Email,
		&user.Phone,
		&user.Avatar,
		&user.Status,
		&user.TenantID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryAdapter) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM sys_user WHERE id = $1 AND deleted_at IS NULL`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, outbound.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, err
}

func (r *UserRepositoryAdapter) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	if username == "" {
		return nil, outbound.ErrUserNotFound
	}
	query := `SELECT ` + userColumns + ` FROM sys_user WHERE username = $1 AND deleted_at IS NULL LIMIT 1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil && !errors.Is(err, outbound.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, err
}

// ExistsByUsername counts soft-deleted rows too; their usernames stay taken.
func (r *UserRepositoryAdapter) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sys_user WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// FindAuthorities returns ROLE_<code> for every role of the user followed by
// the distinct permission codes granted through those roles.
func (r *UserRepositoryAdapter) FindAuthorities(ctx context.Context, userID int64) ([]string, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sys_user WHERE id = $1 AND deleted_at IS NULL)`, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return nil, outbound.ErrUserNotFound
	}

	authorities, err := r.queryStrings(ctx, `
		SELECT 'ROLE_' || r.role_code
		FROM sys_role r
		JOIN sys_user_role ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.role_code
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	permissions, err := r.queryStrings(ctx, `
		SELECT DISTINCT p.perm_code
		FROM sys_permission p
		JOIN sys_role_permission rp ON rp.permission_id = p.id
		JOIN sys_user_role ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.perm_code
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	return append(authorities, permissions...), nil
}

func (r *UserRepositoryAdapter) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts the user and links it to roleCodes in one transaction.
// Unknown roles are created on the fly.
func (r *UserRepositoryAdapter) Create(ctx context.Context, user *entity.User, roleCodes []string) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if user.Username == "" || user.Password == "" {
		return fmt.Errorf("username and password are required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	err = tx.QueryRowContext(ctx, `
		INSERT INTO sys_user (username, password, real_name, email, phone, avatar, status, tenant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		user.Username,
		user.Password,
		user.RealName,
		user.Email,
		user.Phone,
		user.Avatar,
		user.Status,
		user.TenantID,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return outbound.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := linkRoles(ctx, tx, user.ID, roleCodes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}
	return nil
}

// linkRoles links userID to roleCodes, creating unknown roles on the fly.
func linkRoles(ctx context.Context, tx *sql.Tx, userID int64, roleCodes []string) error {
	for _, code := range roleCodes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sys_role (role_code, role_name) VALUES ($1, $1) ON CONFLICT (role_code) DO NOTHING`, code); err != nil {
			return fmt.Errorf("failed to ensure role %s: %w", code, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sys_user_role (user_id, role_id)
			SELECT $1, id FROM sys_role WHERE role_code = $2
			ON CONFLICT DO NOTHING
		`, userID, code); err != nil {
			return fmt.Errorf("failed to assign role %s: %w", code, err)
		}
	}
	return nil
}

func (r *UserRepositoryAdapter) UpdateStatus(ctx context.Context, userID int64, status int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sys_user SET status = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`, status, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return outbound.ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryAdapter) Update(ctx context.Context, user *entity.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE sys_user
		SET username = $1, password = $2, real_name = $3, email = $4, phone = $5,
		    avatar = $6, status = $7, updated_at = $8
		WHERE id = $9 AND deleted_at IS NULL
	`,
		user.Username,
		user.Password,
		user.RealName,
		user.Email,
		user.Phone,
		user.Avatar,
		user.Status,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return outbound.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return outbound.ErrUserNotFound
	}
	return nil
}

// AssignRoles replaces the role links of a live user in one transaction.
func (r *UserRepositoryAdapter) AssignRoles(ctx context.Context, userID int64, roleCodes ...string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	// lock the user row so a concurrent soft delete cannot interleave
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM sys_user WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return outbound.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sys_user_role WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	if err := linkRoles(ctx, tx, userID, roleCodes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit roles: %w", err)
	}
	return nil
}

// SoftDelete stamps deleted_at and removes the role links.
func (r *UserRepositoryAdapter) SoftDelete(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE sys_user SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`, now, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return outbound.ErrUserNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sys_user_role WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (r *UserRepositoryAdapter) FindAll(ctx context.Context, offset, limit int, filters outbound.UserFilters) ([]*entity.User, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	if filters.Keyword != "" {
		args = append(args, "%"+escapeLike(filters.Keyword)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(username ILIKE $%d OR real_name ILIKE $%d)", n, n))
	}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sys_user WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM sys_user WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		userColumns, cond, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*entity.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// escapeLike escapes the ILIKE wildcards in a user supplied keyword.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
