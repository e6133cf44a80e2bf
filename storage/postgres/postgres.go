// Package postgres provides a core.Storage backend on PostgreSQL using a
// jsonb document layout: one table keyed by model name, records stored as
// jsonb. The wrapped framework treats storage as opaque, so no per-model
// schema is required.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lanternsoft/authbridge/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS authbridge_records (
	id     bigserial PRIMARY KEY,
	model  text NOT NULL,
	data   jsonb NOT NULL
);
CREATE INDEX IF NOT EXISTS authbridge_records_model_idx ON authbridge_records (model);
`

// Store is a PostgreSQL core.Storage implementation.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and ensures the record table exists.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// ID returns the storage identifier.
func (s *Store) ID() string {
	return "postgresql"
}

// Create inserts a record.
func (s *Store) Create(ctx context.Context, model string, data map[string]interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("postgres marshal: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO authbridge_records (model, data) VALUES ($1, $2)`,
		model, payload); err != nil {
		return nil, fmt.Errorf("postgres create: %w", err)
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

// FindOne returns the first matching record, or nil.
func (s *Store) FindOne(ctx context.Context, query *core.Query) (map[string]interface{}, error) {
	where, args := buildWhere(query)
	sql := `SELECT data FROM authbridge_records WHERE ` + where + ` LIMIT 1`

	var raw []byte
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres find one: %w", err)
	}
	return decode(raw)
}

// FindMany returns all matching records.
func (s *Store) FindMany(ctx context.Context, query *core.Query) ([]map[string]interface{}, error) {
	where, args := buildWhere(query)
	sql := `SELECT data FROM authbridge_records WHERE ` + where
	if len(query.OrderBy) > 0 {
		parts := make([]string, len(query.OrderBy))
		for i, ob := range query.OrderBy {
			dir := "ASC"
			if ob.Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("data->>'%s' %s", sanitizeField(ob.Field), dir)
		}
		sql += ` ORDER BY ` + strings.Join(parts, ", ")
	}
	if query.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", query.Limit)
	}
	if query.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres find many: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		record, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Update merges data into the first matching record and returns the result.
func (s *Store) Update(ctx context.Context, query *core.Query, data map[string]interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("postgres marshal: %w", err)
	}
	where, args := buildWhere(query)
	args = append(args, payload)
	sql := fmt.Sprintf(
		`UPDATE authbridge_records SET data = data || $%d
		 WHERE id = (SELECT id FROM authbridge_records WHERE %s LIMIT 1)
		 RETURNING data`, len(args), where)

	var raw []byte
	err = s.pool.QueryRow(ctx, sql, args...).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres update: %w", err)
	}
	return decode(raw)
}

// Delete removes all matching records.
func (s *Store) Delete(ctx context.Context, query *core.Query) error {
	where, args := buildWhere(query)
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM authbridge_records WHERE `+where, args...); err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}

// Count returns the number of matching records.
func (s *Store) Count(ctx context.Context, query *core.Query) (int64, error) {
	where, args := buildWhere(query)
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM authbridge_records WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres count: %w", err)
	}
	return count, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// buildWhere renders the query's where clauses against the jsonb document.
// Values are compared through ->> as text, which is sufficient for the
// id/token/email lookups the framework contract performs.
func buildWhere(query *core.Query) (string, []interface{}) {
	clauses := []string{"model = $1"}
	args := []interface{}{query.Model}

	for _, w := range query.Where {
		field := sanitizeField(w.Field)
		switch w.Operator {
		case core.OpIn:
			args = append(args, toStringSlice(w.Value))
			clauses = append(clauses, fmt.Sprintf("data->>'%s' = ANY($%d)", field, len(args)))
		case core.OpNotEqual:
			args = append(args, fmt.Sprint(w.Value))
			clauses = append(clauses, fmt.Sprintf("data->>'%s' != $%d", field, len(args)))
		case core.OpGreaterThan:
			args = append(args, fmt.Sprint(w.Value))
			clauses = append(clauses, fmt.Sprintf("data->>'%s' > $%d", field, len(args)))
		case core.OpLessThan:
			args = append(args, fmt.Sprint(w.Value))
			clauses = append(clauses, fmt.Sprintf("data->>'%s' < $%d", field, len(args)))
		default:
			args = append(args, fmt.Sprint(w.Value))
			clauses = append(clauses, fmt.Sprintf("data->>'%s' = $%d", field, len(args)))
		}
	}
	return strings.Join(clauses, " AND "), args
}

// sanitizeField strips characters that could escape the jsonb accessor.
func sanitizeField(field string) string {
	return strings.Map(func(r rune) rune {
		if r == '\'' || r == '"' || r == '\\' {
			return -1
		}
		return r
	}, field)
}

func toStringSlice(v interface{}) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []interface{}:
		out := make([]string, len(vs))
		for i, item := range vs {
			out[i] = fmt.Sprint(item)
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

func decode(raw []byte) (map[string]interface{}, error) {
	var record map[string]interface{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("postgres decode: %w", err)
	}
	return record, nil
}
