package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"fileops-backend/internal/models"
)

type PostgresAuditRepository struct {
	db *sqlx.DB
}

func NewPostgresAuditRepository(db *sqlx.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

func (r *PostgresAuditRepository) Insert(ctx context.Context, entry *models.LogEntry) error {
	query := `
		insert into log_book (user_id, action, file_id, details, ip_address)
		values ($1, $2, $3, $4, $5)
		returning id, created_at
	`
	// jsonb parameters must travel as text; []byte would be sent as bytea.
	var details interface{}
	if entry.Details != nil {
		details = string(entry.Details)
	}
	err := r.db.QueryRowxContext(ctx, query,
		entry.UserID, entry.Action, entry.FileID, details, entry.IPAddress).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}
	return nil
}

func (r *PostgresAuditRepository) List(ctx context.Context, filter LogFilter) ([]models.LogEntry, error) {
	query := "select id, user_id, action, file_id, details, coalesce(ip_address, '') as ip_address, created_at from log_book"
	var args []interface{}

	where := ""
	and := func(cond string) {
		if where == "" {
			where = " where " + cond
		} else {
			where += " and " + cond
		}
	}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		and("user_id = $" + strconv.Itoa(len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		and("action = $" + strconv.Itoa(len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		and("created_at >= $" + strconv.Itoa(len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		and("created_at < $" + strconv.Itoa(len(args)))
	}

	order := " order by created_at desc"
	if filter.Ascending {
		order = " order by created_at asc"
	}

	var entries []models.LogEntry
	if err := r.db.SelectContext(ctx, &entries, query+where+order, args...); err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	return entries, nil
}

func (r *PostgresAuditRepository) ActionCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryxContext(ctx, "select action, count(*) from log_book group by action")
	if err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		counts[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}
	return counts, nil
}

func (r *PostgresAuditRepository) DistinctUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, "select count(distinct user_id) from log_book where user_id is not null"); err != nil {
		return 0, fmt.Errorf("failed to count distinct users: %w", err)
	}
	return count, nil
}
