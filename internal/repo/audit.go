package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crucial707/cinebrowse/internal/models"
)

// AuditRepo persists auth activity entries.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Log records an auth event. action is signup|login|logout.
func (r *AuditRepo) Log(ctx context.Context, userID int, action, ip, userAgent string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_events (user_id, action, ip, user_agent) VALUES ($1, $2, $3, $4)`,
		userID, action, ip, userAgent,
	)
	if err != nil {
		return fmt.Errorf("log auth event: %w", err)
	}
	return nil
}

// ListForUser returns a user's recent events, newest first.
func (r *AuditRepo) ListForUser(ctx context.Context, userID, limit int) ([]models.AuthEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, ip, user_agent, created_at FROM auth_events WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list auth events: %w", err)
	}
	defer rows.Close()

	entries := []models.AuthEvent{}
	for rows.Next() {
		var e models.AuthEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.IP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("list auth events: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneBefore deletes events created before cutoff and returns how many were removed.
func (r *AuditRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune auth events: %w", err)
	}
	return res.RowsAffected()
}
