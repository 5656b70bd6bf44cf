package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, name, email, phone, password_hash, role, referral_code,
	referred_by, placement, cc, balance, blocked,
	street, city, state, country, zipcode, created_at`

// UserRepository реализует репозиторий пользователей и реферального дерева.
type UserRepository struct {
	db DBTX
}

// NewUserRepository создает новый UserRepository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash,
		&user.Role, &user.ReferralCode, &user.ReferredBy, &user.Placement,
		&user.CC, &user.Balance, &user.Blocked,
		&user.Address.Street, &user.Address.City, &user.Address.State,
		&user.Address.Country, &user.Address.Zipcode, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser создает нового пользователя. Если задан ReferredBy,
// в той же транзакции пользователь добавляется в команду пригласившего.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback после Commit безопасен

	created, err := scanUser(tx.QueryRow(ctx,
		`INSERT INTO users (name, email, phone, password_hash, role, referral_code,
			referred_by, placement, street, city, state, country, zipcode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+userColumns,
		user.Name, user.Email, user.Phone, user.PasswordHash, user.Role,
		user.ReferralCode, user.ReferredBy, user.Placement,
		user.Address.Street, user.Address.City, user.Address.State,
		user.Address.Country, user.Address.Zipcode,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("repository: failed to create user %q: %w", user.Email, err)
	}

	if created.ReferredBy != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO team_members (referrer_id, member_id, placement)
			 VALUES ($1, $2, $3)`,
			*created.ReferredBy, created.ID, created.Placement,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to add team member for referrer %d: %w", *created.ReferredBy, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository: failed to commit user creation: %w", err)
	}

	return created, nil
}

// GetUserByID получает пользователя по ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to get user by id %d: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail получает пользователя по email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to get user by email %q: %w", email, err)
	}
	return user, nil
}

// GetUserByReferralCode получает пользователя по реферальному коду
func (r *UserRepository) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to get user by referral code: %w", err)
	}
	return user, nil
}

// ListUsers возвращает всех пользователей
func (r *UserRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating users: %w", err)
	}

	return users, nil
}

// UpdateRole обновляет роль пользователя
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("repository: failed to update role for user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetBlocked блокирует или разблокирует пользователя
func (r *UserRepository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET blocked = $2 WHERE id = $1`, id, blocked)
	if err != nil {
		return fmt.Errorf("repository: failed to set blocked for user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListTeam возвращает прямую команду пользователя
func (r *UserRepository) ListTeam(ctx context.Context, referrerID int64) ([]*domain.TeamMember, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.name, tm.placement, tm.joined_at
		 FROM team_members tm
		 JOIN users u ON u.id = tm.member_id
		 WHERE tm.referrer_id = $1
		 ORDER BY tm.joined_at`,
		referrerID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list team for user %d: %w", referrerID, err)
	}
	defer rows.Close()

	var members []*domain.TeamMember
	for rows.Next() {
		m := &domain.TeamMember{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Placement, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan team member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating team members: %w", err)
	}

	return members, nil
}

// GetTeamStats возвращает статистику команды: общий размер и размеры веток
func (r *UserRepository) GetTeamStats(ctx context.Context, referrerID int64) (*domain.TeamStats, error) {
	stats := &domain.TeamStats{}
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE placement = 'left'),
			COUNT(*) FILTER (WHERE placement = 'right')
		 FROM team_members
		 WHERE referrer_id = $1`,
		referrerID,
	).Scan(&stats.Total, &stats.Left, &stats.Right)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get team stats for user %d: %w", referrerID, err)
	}
	return stats, nil
}
