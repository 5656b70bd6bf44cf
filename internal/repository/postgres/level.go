package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// LevelRepository реализует репозиторий уровней дохода и их выдачи.
type LevelRepository struct {
	db DBTX
}

// NewLevelRepository создает новый LevelRepository
func NewLevelRepository(db DBTX) *LevelRepository {
	return &LevelRepository{db: db}
}

// CreateLevel создает новый уровень дохода
func (r *LevelRepository) CreateLevel(ctx context.Context, level *domain.IncomeLevel) (*domain.IncomeLevel, error) {
	created := &domain.IncomeLevel{}
	*created = *level

	err := r.db.QueryRow(ctx,
		`INSERT INTO income_levels (name, threshold, reward)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		level.Name, level.Threshold, level.Reward,
	).Scan(&created.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrLevelExists
		}
		return nil, fmt.Errorf("repository: failed to create income level %q: %w", level.Name, err)
	}

	return created, nil
}

// ListLevels возвращает все уровни дохода.
// Порядок хранения не гарантирован, сортировка — дело вызывающего.
func (r *LevelRepository) ListLevels(ctx context.Context) ([]*domain.IncomeLevel, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, threshold, reward FROM income_levels`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list income levels: %w", err)
	}
	defer rows.Close()

	var levels []*domain.IncomeLevel
	for rows.Next() {
		level := &domain.IncomeLevel{}
		if err := rows.Scan(&level.ID, &level.Name, &level.Threshold, &level.Reward); err != nil {
			return nil, fmt.Errorf("repository: failed to scan income level: %w", err)
		}
		levels = append(levels, level)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating income levels: %w", err)
	}

	return levels, nil
}

// DeleteLevel удаляет уровень дохода
func (r *LevelRepository) DeleteLevel(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM income_levels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete income level %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLevelNotFound
	}
	return nil
}

// ListGrants возвращает уже выданные пользователю уровни
func (r *LevelRepository) ListGrants(ctx context.Context, userID int64) ([]*domain.LevelGrant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT level_id, granted_at FROM level_grants WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list level grants for user %d: %w", userID, err)
	}
	defer rows.Close()

	var grants []*domain.LevelGrant
	for rows.Next() {
		grant := &domain.LevelGrant{}
		if err := rows.Scan(&grant.LevelID, &grant.GrantedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan level grant: %w", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating level grants: %w", err)
	}

	return grants, nil
}

// ApplyGrants выдает уровни и начисляет вознаграждения на баланс в одной
// транзакции. Advisory lock по user_id сериализует конкурентные проверки
// одного пользователя, а уникальный ключ level_grants делает повторную
// выдачу невозможной даже без блокировки: вознаграждение начисляется
// только за фактически вставленную запись.
func (r *LevelRepository) ApplyGrants(ctx context.Context, userID int64, levels []domain.IncomeLevel) ([]int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback после Commit безопасен

	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to acquire lock for user %d: %w", userID, err)
	}

	var granted []int64
	for _, level := range levels {
		tag, err := tx.Exec(ctx,
			`INSERT INTO level_grants (user_id, level_id)
			 VALUES ($1, $2)
			 ON CONFLICT (user_id, level_id) DO NOTHING`,
			userID, level.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to grant level %d to user %d: %w", level.ID, userID, err)
		}
		if tag.RowsAffected() == 0 {
			// Уровень уже выдан конкурентной проверкой
			continue
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET balance = balance + $2 WHERE id = $1`,
			userID, level.Reward,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to credit reward for level %d to user %d: %w", level.ID, userID, err)
		}

		granted = append(granted, level.ID)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository: failed to commit level grants for user %d: %w", userID, err)
	}

	return granted, nil
}
