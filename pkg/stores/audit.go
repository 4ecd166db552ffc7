package stores

import (
	"context"
	"fmt"
	"time"
)

// CreateAuditEntry appends an entry to the audit trail. It joins the
// transaction carried by ctx, if any.
func (s *SQLiteStore) CreateAuditEntry(ctx context.Context, entry *AuditEntry) error {
	return createAuditEntry(ctx, s.conn(ctx), entry)
}

func createAuditEntry(ctx context.Context, q querier, entry *AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO audit (action, actor, target_id, details, timestamp) VALUES (?, ?, ?, ?, ?)`,
		entry.Action, entry.Actor, entry.TargetID, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	if entry.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get audit entry id: %w", err)
	}
	return nil
}

// audit records action on target in the same transaction as the write it
// describes.
func (s *SQLiteStore) audit(ctx context.Context, q querier, action, target string) error {
	return createAuditEntry(ctx, q, &AuditEntry{Action: action, Actor: s.cfg.Actor, TargetID: &target})
}

// ListAuditEntries lists audit entries, newest first. A nil action or actor
// matches every entry.
func (s *SQLiteStore) ListAuditEntries(ctx context.Context, action, actor *string, limit, offset int) ([]*AuditEntry, error) {
	return collect(ctx, s.conn(ctx), "audit entries", scanAuditEntry, `
		SELECT id, action, actor, target_id, details, timestamp
		FROM audit
		WHERE (? IS NULL OR action = ?)
		  AND (? IS NULL OR actor = ?)
		ORDER BY id DESC
		LIMIT ? OFFSET ?`,
		action, action, actor, actor, limit, offset,
	)
}

func scanAuditEntry(row rowScanner) (*AuditEntry, error) {
	e := &AuditEntry{}
	if err := row.Scan(&e.ID, &e.Action, &e.Actor, &e.TargetID, &e.Details, &e.Timestamp); err != nil {
		return nil, err
	}
	return e, nil
}
