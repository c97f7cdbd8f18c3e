package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"adminhub/internal/platform/models"
)

type actorKey struct{}

// WithActor tags ctx with the identifier recorded as user_identifier.
func WithActor(ctx context.Context, userIdentifier string) context.Context {
	return context.WithValue(ctx, actorKey{}, userIdentifier)
}

func ActorFrom(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey{}).(string); ok && id != "" {
		return id
	}
	return "system"
}

// Execer is satisfied by *sql.DB and *sql.Tx so audit rows can be written in
// the same transaction as the change they describe.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Snapshot converts a row struct into its JSON field map.
func Snapshot(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return map[string]interface{}{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Diff returns the fields whose value differs between before and after.
// updated_at is bookkeeping and never reported.
func Diff(before, after map[string]interface{}) map[string]models.FieldChange {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	diff := make(map[string]models.FieldChange)
	for k := range keys {
		if k == "updated_at" {
			continue
		}
		if !reflect.DeepEqual(before[k], after[k]) {
			diff[k] = models.FieldChange{Old: before[k], New: after[k]}
		}
	}
	return diff
}

// Record appends an audit row for an update of table/id. Nothing is written
// when the update changed no fields.
func (l *Logger) Record(ctx context.Context, exec Execer, table, id string, before, after interface{}) error {
	if exec == nil {
		exec = l.db
	}

	beforeMap, err := Snapshot(before)
	if err != nil {
		return fmt.Errorf("audit snapshot: %w", err)
	}
	afterMap, err := Snapshot(after)
	if err != nil {
		return fmt.Errorf("audit snapshot: %w", err)
	}

	diff := Diff(beforeMap, afterMap)
	if len(diff) == 0 {
		return nil
	}

	beforeJSON, _ := json.Marshal(beforeMap)
	afterJSON, _ := json.Marshal(afterMap)
	diffJSON, _ := json.Marshal(diff)

	entryID := uuid.NewString()
	actor := ActorFrom(ctx)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO audit_logs (id, table_name, updated_at, user_identifier, before_update, after_update, diff, id_object)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entryID, table, time.Now().Unix(), actor, string(beforeJSON), string(afterJSON), string(diffJSON), id)
	if err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}

	fields := make([]string, 0, len(diff))
	for k := range diff {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	log.Debug().Str("table", table).Str("id_object", id).Str("actor", actor).Strs("fields", fields).Msg("audit recorded")

	return nil
}

// List returns the newest entries first.
func (l *Logger) List(ctx context.Context, limit int) ([]*models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, table_name, updated_at, user_identifier, before_update, after_update, diff, id_object
		FROM audit_logs ORDER BY updated_at DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.AuditLogEntry{}
	for rows.Next() {
		entry := &models.AuditLogEntry{}
		var beforeStr, afterStr, diffStr string
		if err := rows.Scan(&entry.ID, &entry.TableName, &entry.UpdatedAt, &entry.UserIdentifier, &beforeStr, &afterStr, &diffStr, &entry.IDObject); err != nil {
			return nil, err
		}

		// malformed documents surface as empty maps rather than failing the list
		json.Unmarshal([]byte(beforeStr), &entry.BeforeUpdate)
		json.Unmarshal([]byte(afterStr), &entry.AfterUpdate)
		json.Unmarshal([]byte(diffStr), &entry.Diff)

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
