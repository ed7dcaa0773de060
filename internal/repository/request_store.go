package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

var (
	// ErrStale signals that a conditional update matched no row: the status or
	// lock changed since the caller read it.
	ErrStale = errors.New("repository: row changed concurrently")
	// ErrDuplicate signals a unique constraint violation.
	ErrDuplicate = errors.New("repository: duplicate key")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const baseColumns = `id, display_id, vip_code, player_name, messenger_id, team_code, status,
created_by, processed_by, processed_at, notes, created_at, updated_at,
processing_status, processing_by, processing_modal, processing_locked_at`

const (
	defaultPageSize = 20
	maxPageSize     = 200
	maxExportRows   = 10000
)

// StatusUpdate is a compare-and-set transition of one request row.
type StatusUpdate struct {
	ID     string
	From   string
	To     string
	Actor  string
	At     time.Time
	Fields map[string]interface{}
	// RequireLock only matches rows that are idle or locked by Actor.
	RequireLock bool
	// ReleaseLock resets the processing lock in the same statement.
	ReleaseLock bool
}

// requestStore implements the queries shared by the four request tables.
type requestStore struct {
	db      *sqlx.DB
	table   string
	columns string
	// mutable whitelists the payload columns StatusUpdate.Fields may set.
	mutable map[string]bool
}

func (s *requestStore) selectClause() string {
	return "SELECT " + baseColumns + ", " + s.columns + " FROM " + s.table
}

func (s *requestStore) get(ctx context.Context, dest interface{}, id string, forUpdate bool) error {
	query := s.selectClause() + " WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	if err := conn(ctx, s.db).GetContext(ctx, dest, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("get %s: %w", s.table, err)
	}
	return nil
}

func (s *requestStore) list(ctx context.Context, dest interface{}, filter models.RequestFilter) (int, error) {
	where, args := buildRequestWhere(filter)

	limit, offset := pageBounds(filter)
	listQuery := fmt.Sprintf("%s%s ORDER BY created_at DESC LIMIT %d OFFSET %d", s.selectClause(), where, limit, offset)
	if err := conn(ctx, s.db).SelectContext(ctx, dest, listQuery, args...); err != nil {
		return 0, fmt.Errorf("list %s: %w", s.table, err)
	}
	if filter.Limit > 0 {
		return 0, nil
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.table, where)
	if err := conn(ctx, s.db).GetContext(ctx, &total, countQuery, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return total, nil
}

func pageBounds(filter models.RequestFilter) (int, int) {
	if filter.Limit > 0 {
		limit := filter.Limit
		if limit > maxExportRows {
			limit = maxExportRows
		}
		return limit, 0
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	switch {
	case size <= 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}
	return size, (page - 1) * size
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns free text into a lowercase substring pattern for LIKE ... ESCAPE '\'.
func likePattern(text string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
}

// buildRequestWhere renders the tenant, status and search predicates.
func buildRequestWhere(filter models.RequestFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if !filter.AllTeams {
		args = append(args, pq.Array(filter.Teams))
		conditions = append(conditions, fmt.Sprintf("team_code = ANY($%d)", len(args)))
	}
	if filter.TeamCode != "" {
		args = append(args, filter.TeamCode)
		conditions = append(conditions, fmt.Sprintf("team_code = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(filter.Statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.VIPCode != "" {
		args = append(args, filter.VIPCode)
		conditions = append(conditions, fmt.Sprintf("vip_code = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(LOWER(display_id) LIKE $%d ESCAPE '\' OR LOWER(player_name) LIKE $%d ESCAPE '\' OR LOWER(vip_code) LIKE $%d ESCAPE '\')`, n, n, n))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// updateStatus applies u and returns ErrStale when no row matched.
func (s *requestStore) updateStatus(ctx context.Context, u StatusUpdate) error {
	at := u.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	params := map[string]interface{}{
		"id":          u.ID,
		"from_status": u.From,
		"to_status":   u.To,
		"updated_at":  at,
	}
	setParts := []string{"status = :to_status", "updated_at = :updated_at"}
	if u.Actor != "" {
		params["actor"] = u.Actor
		setParts = append(setParts, "processed_by = :actor", "processed_at = :updated_at")
	}

	keys := make([]string, 0, len(u.Fields))
	for key := range u.Fields {
		if !s.mutable[key] {
			return fmt.Errorf("update %s: column %q is not mutable", s.table, key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		params["f_"+key] = u.Fields[key]
		setParts = append(setParts, fmt.Sprintf("%s = :f_%s", key, key))
	}

	if u.ReleaseLock {
		setParts = append(setParts,
			"processing_status = 'idle'",
			"processing_by = NULL",
			"processing_modal = 'none'",
			"processing_locked_at = NULL",
		)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id AND status = :from_status", s.table, strings.Join(setParts, ", "))
	if u.RequireLock {
		if _, ok := params["actor"]; !ok {
			params["actor"] = u.Actor
		}
		query += " AND (processing_status = 'idle' OR processing_by = :actor)"
	}

	result, err := conn(ctx, s.db).NamedExecContext(ctx, query, params)
	if err != nil {
		return fmt.Errorf("update %s status: %w", s.table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s update rows: %w", s.table, err)
	}
	if rows == 0 {
		return ErrStale
	}
	return nil
}

func columnSet(cols ...string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}
