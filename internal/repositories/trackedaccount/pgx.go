package trackedaccount

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opentruth/truth-parser-telegram-bot/internal/domain"
	"github.com/opentruth/truth-parser-telegram-bot/internal/repositories"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/logger"
)

type PgxRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewPgxRepository(pool *pgxpool.Pool, logger logger.Logger) *PgxRepository {
	return &PgxRepository{
		pool:   pool,
		logger: logger.WithComponent("TrackedAccountRepo"),
	}
}

var _ Repository = (*PgxRepository)(nil)

func (r *PgxRepository) Create(ctx context.Context, acc domain.TrackedAccount) error {
	var lastSeenID any
	if acc.LastSeenPostID != "" {
		lastSeenID = acc.LastSeenPostID
	}
	var lastSeenAt any
	if !acc.LastSeenAt.IsZero() {
		lastSeenAt = acc.LastSeenAt
	}

	query, args, err := repositories.SqBuilder.
		Insert("tracked_accounts").
		Columns("username", "last_seen_post_id", "last_seen_at").
		Values(acc.Username, lastSeenID, lastSeenAt).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyTracked
		}
		return err
	}
	return nil
}

func (r *PgxRepository) Delete(ctx context.Context, username string) error {
	query, args, err := repositories.SqBuilder.
		Delete("tracked_accounts").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrNotTracked
	}

	return nil
}

func (r *PgxRepository) GetAll(ctx context.Context) ([]*domain.TrackedAccount, error) {
	query, args, err := selectAccounts().OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.TrackedAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *PgxRepository) GetByUsername(ctx context.Context, username string) (*domain.TrackedAccount, error) {
	query, args, err := selectAccounts().Where(sq.Eq{"username": username}).ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotTracked
	}

	return scanAccount(rows)
}

// UpdateLastSeen guards monotonicity in SQL: post ids are decimal snowflake
// strings, so (length, value) row comparison orders them without casting.
// A stale id simply matches zero rows and the watermark stays put.
func (r *PgxRepository) UpdateLastSeen(ctx context.Context, username, postID string, postedAt time.Time, relayed int) error {
	const query = `
		UPDATE tracked_accounts
		SET last_seen_post_id = $1,
		    last_seen_at = $2,
		    post_count = post_count + $3
		WHERE username = $4
		  AND (
		    last_seen_post_id IS NULL
		    OR (char_length($1), $1) > (char_length(last_seen_post_id), last_seen_post_id)
		  )`

	result, err := r.pool.Exec(ctx, query, postID, postedAt, relayed, username)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByUsername(ctx, username); err != nil {
			return err
		}
		r.logger.Warn("Ignoring backward watermark update",
			"username", username,
			"post_id", postID)
	}

	return nil
}

func selectAccounts() sq.SelectBuilder {
	return repositories.SqBuilder.
		Select("id", "username",
			"COALESCE(last_seen_post_id, '')",
			"last_seen_at",
			"post_count", "created_at").
		From("tracked_accounts")
}

// scanAccount maps a row to the domain type. A NULL last_seen_at becomes the
// zero time, matching the empty-watermark representation.
func scanAccount(rows pgx.Rows) (*domain.TrackedAccount, error) {
	var acc domain.TrackedAccount
	var lastSeenAt pgtype.Timestamptz
	if err := rows.Scan(&acc.ID, &acc.Username, &acc.LastSeenPostID, &lastSeenAt, &acc.PostCount, &acc.CreatedAt); err != nil {
		return nil, err
	}
	if lastSeenAt.Valid {
		acc.LastSeenAt = lastSeenAt.Time
	}
	return &acc, nil
}
