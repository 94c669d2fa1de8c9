package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/db"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgInsertReply = `INSERT INTO replies (id, message_key, email, campaign_id, response_type, confidence, message, classification, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (message_key) DO NOTHING`
	pgIsProcessed = `SELECT EXISTS (SELECT 1 FROM replies WHERE message_key = $1)`
	pgUpsertLead  = `INSERT INTO leads (id, email, name, company, tier, total_score, priority, amount, interactions, contacted, qualification, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		 ON CONFLICT (email) DO UPDATE SET
		   name = EXCLUDED.name, company = EXCLUDED.company, tier = EXCLUDED.tier,
		   total_score = EXCLUDED.total_score, priority = EXCLUDED.priority, amount = EXCLUDED.amount,
		   interactions = EXCLUDED.interactions, qualification = EXCLUDED.qualification,
		   updated_at = EXCLUDED.updated_at
		 RETURNING id, contacted, created_at`
	pgGetLead = `SELECT id, email, name, company, tier, total_score, priority, amount, interactions, contacted, qualification, created_at, updated_at
		 FROM leads WHERE email = $1`
	pgDueFollowUps = `SELECT id, lead_email, day_offset, action, channel, due_at, status, created_at
		 FROM follow_ups WHERE status = $1 AND due_at <= $2
		 ORDER BY due_at ASC LIMIT $3`
	pgInsertAutoresponse = `INSERT INTO autoresponses (id, reply_id, email, response_type, template_id, subject, provider_id, suppressed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

// preparedStatements lists queries to prepare on each new connection for
// the per-message hot path.
var preparedStatements = map[string]string{
	"insert_reply":        pgInsertReply,
	"is_processed":        pgIsProcessed,
	"upsert_lead":         pgUpsertLead,
	"get_lead":            pgGetLead,
	"due_follow_ups":      pgDueFollowUps,
	"insert_autoresponse": pgInsertAutoresponse,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS replies (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	message_key    TEXT NOT NULL UNIQUE,
	email          TEXT NOT NULL,
	campaign_id    TEXT NOT NULL DEFAULT '',
	response_type  TEXT NOT NULL,
	confidence     DOUBLE PRECISION NOT NULL,
	message        JSONB NOT NULL,
	classification JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	company       TEXT NOT NULL DEFAULT '',
	tier          TEXT NOT NULL,
	total_score   INTEGER NOT NULL,
	priority      TEXT NOT NULL,
	amount        BIGINT NOT NULL DEFAULT 0,
	interactions  INTEGER NOT NULL DEFAULT 0,
	contacted     BOOLEAN NOT NULL DEFAULT false,
	qualification JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS follow_ups (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_email TEXT NOT NULL,
	day_offset INTEGER NOT NULL,
	action     TEXT NOT NULL,
	channel    TEXT NOT NULL,
	due_at     TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS autoresponses (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	reply_id      TEXT NOT NULL,
	email         TEXT NOT NULL,
	response_type TEXT NOT NULL,
	template_id   TEXT NOT NULL,
	subject       TEXT NOT NULL,
	provider_id   TEXT NOT NULL DEFAULT '',
	suppressed    BOOLEAN NOT NULL DEFAULT false,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	message        JSONB NOT NULL,
	stage          TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	ref            TEXT NOT NULL DEFAULT '',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_replies_email ON replies(email);
CREATE INDEX IF NOT EXISTS idx_replies_created_at ON replies(created_at);
CREATE INDEX IF NOT EXISTS idx_leads_tier ON leads(tier);
CREATE INDEX IF NOT EXISTS idx_follow_ups_due ON follow_ups(status, due_at);
CREATE INDEX IF NOT EXISTS idx_follow_ups_email ON follow_ups(lead_email);
CREATE INDEX IF NOT EXISTS idx_autoresponses_created_at ON autoresponses(created_at);
CREATE INDEX IF NOT EXISTS idx_dlq_stage ON dead_letter_queue(stage);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Replies ---

func (s *PostgresStore) SaveReply(ctx context.Context, reply *model.Reply) error {
	msgJSON, err := json.Marshal(reply.Message)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal message")
	}
	clsJSON, err := json.Marshal(reply.Classification)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal classification")
	}
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx, pgInsertReply,
		reply.ID, reply.MessageKey, reply.Message.SenderEmail, reply.Message.CampaignID,
		string(reply.Classification.ResponseType), reply.Classification.Confidence,
		msgJSON, clsJSON, reply.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert reply")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrDuplicate, "postgres: reply %s", reply.MessageKey)
	}
	return nil
}

func (s *PostgresStore) IsProcessed(ctx context.Context, messageKey string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, pgIsProcessed, messageKey).Scan(&exists)
	return exists, eris.Wrap(err, "postgres: is processed")
}

func (s *PostgresStore) ListReplies(ctx context.Context, filter ReplyFilter) ([]model.Reply, error) {
	query := `SELECT id, message_key, message, classification, created_at FROM replies WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.Email != "" {
		query += fmt.Sprintf(` AND email = $%d`, argIdx)
		args = append(args, filter.Email)
		argIdx++
	}
	if filter.ResponseType != "" {
		query += fmt.Sprintf(` AND response_type = $%d`, argIdx)
		args = append(args, string(filter.ResponseType))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, limitOr(filter.Limit, 100))
	argIdx++
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list replies")
	}
	defer rows.Close()

	var replies []model.Reply
	for rows.Next() {
		var r model.Reply
		var msgJSON, clsJSON []byte
		if err := rows.Scan(&r.ID, &r.MessageKey, &msgJSON, &clsJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan reply")
		}
		if err := json.Unmarshal(msgJSON, &r.Message); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal message")
		}
		if err := json.Unmarshal(clsJSON, &r.Classification); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal classification")
		}
		replies = append(replies, r)
	}
	return replies, eris.Wrap(rows.Err(), "postgres: list replies iterate")
}

// --- Leads ---

func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	qJSON, err := json.Marshal(lead.Qualification)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal qualification")
	}

	now := time.Now().UTC()
	err = s.pool.QueryRow(ctx, pgUpsertLead,
		uuid.New().String(), lead.Email, lead.Name, lead.Company, string(lead.Tier),
		lead.TotalScore, string(lead.Priority), lead.Amount, lead.Interactions, lead.Contacted,
		qJSON, now,
	).Scan(&lead.ID, &lead.Contacted, &lead.CreatedAt)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert lead %s", lead.Email)
	}
	lead.UpdatedAt = now
	return nil
}

func (s *PostgresStore) GetLead(ctx context.Context, email string) (*model.Lead, error) {
	lead, err := scanPostgresLead(s.pool.QueryRow(ctx, pgGetLead, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", email)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT id, email, name, company, tier, total_score, priority, amount, interactions, contacted, qualification, created_at, updated_at
	          FROM leads WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.Tier != "" {
		query += fmt.Sprintf(` AND tier = $%d`, argIdx)
		args = append(args, string(filter.Tier))
		argIdx++
	}
	if filter.Priority != "" {
		query += fmt.Sprintf(` AND priority = $%d`, argIdx)
		args = append(args, string(filter.Priority))
		argIdx++
	}
	if filter.Uncontacted {
		query += ` AND NOT contacted`
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND total_score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY total_score DESC, amount DESC LIMIT $%d`, argIdx)
	args = append(args, limitOr(filter.Limit, 100))
	argIdx++
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPostgresLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) MarkContacted(ctx context.Context, email string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET contacted = true, updated_at = $1 WHERE email = $2`,
		time.Now().UTC(), email,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark contacted %s", email)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s", email)
	}
	return nil
}

// DeleteLead removes a lead. Deleting a missing lead is not an error.
func (s *PostgresStore) DeleteLead(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE email = $1`, email)
	return eris.Wrapf(err, "postgres: delete lead %s", email)
}

// --- Follow-ups ---

var followUpColumns = []string{"id", "lead_email", "day_offset", "action", "channel", "due_at", "status", "created_at"}

func (s *PostgresStore) CreateFollowUps(ctx context.Context, followUps []model.FollowUp) error {
	if len(followUps) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(followUps))
	for i := range followUps {
		f := &followUps[i]
		prepareFollowUp(f, now)
		rows = append(rows, []any{
			f.ID, f.LeadEmail, f.DayOffset, f.Action, string(f.Channel),
			f.DueAt.UTC(), string(f.Status), f.CreatedAt,
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "follow_ups", followUpColumns, rows)
	return eris.Wrap(err, "postgres: create follow-ups")
}

func (s *PostgresStore) DueFollowUps(ctx context.Context, before time.Time, limit int) ([]model.FollowUp, error) {
	rows, err := s.pool.Query(ctx, pgDueFollowUps,
		string(model.FollowUpPending), before.UTC(), limitOr(limit, 100))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: due follow-ups")
	}
	defer rows.Close()

	var out []model.FollowUp
	for rows.Next() {
		var f model.FollowUp
		var channel, status string
		if err := rows.Scan(&f.ID, &f.LeadEmail, &f.DayOffset, &f.Action, &channel,
			&f.DueAt, &status, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan follow-up")
		}
		f.Channel = qualify.Channel(channel)
		f.Status = model.FollowUpStatus(status)
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: due follow-ups iterate")
}

func (s *PostgresStore) SetFollowUpStatus(ctx context.Context, id string, status model.FollowUpStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE follow_ups SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set follow-up status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("follow-up not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CancelFollowUps(ctx context.Context, email string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE follow_ups SET status = $1 WHERE lead_email = $2 AND status = $3`,
		string(model.FollowUpCancelled), email, string(model.FollowUpPending),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: cancel follow-ups %s", email)
	}
	return int(tag.RowsAffected()), nil
}

// --- Autoresponses ---

func (s *PostgresStore) LogAutoresponse(ctx context.Context, ar *model.Autoresponse) error {
	if ar.ID == "" {
		ar.ID = uuid.New().String()
	}
	if ar.CreatedAt.IsZero() {
		ar.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, pgInsertAutoresponse,
		ar.ID, ar.ReplyID, ar.Email, string(ar.ResponseType), ar.TemplateID, ar.Subject,
		ar.ProviderID, ar.Suppressed, ar.CreatedAt,
	)
	return eris.Wrap(err, "postgres: log autoresponse")
}

func (s *PostgresStore) AutoresponseStats(ctx context.Context, now time.Time) (*AutoresponseStats, error) {
	stats := &AutoresponseStats{ByType: make(map[string]int)}
	now = now.UTC()

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE suppressed),
		        COUNT(*) FILTER (WHERE created_at >= $1),
		        COUNT(*) FILTER (WHERE created_at >= $2)
		 FROM autoresponses`,
		now.Add(-24*time.Hour), now.Add(-7*24*time.Hour),
	).Scan(&stats.Total, &stats.Suppressed, &stats.Last24Hours, &stats.Last7Days)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: autoresponse totals")
	}

	rows, err := s.pool.Query(ctx, `SELECT response_type, COUNT(*) FROM autoresponses GROUP BY response_type`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: autoresponse by type")
	}
	defer rows.Close()
	for rows.Next() {
		var rt string
		var n int
		if err := rows.Scan(&rt, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan autoresponse type")
		}
		stats.ByType[rt] = n
	}
	return stats, eris.Wrap(rows.Err(), "postgres: autoresponse by type iterate")
}

// --- Dead letter queue ---

func (s *PostgresStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	msgJSON, err := json.Marshal(entry.Message)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dlq message")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO dead_letter_queue
		 (id, message, stage, error, error_type, ref, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   stage = $3, error = $4, error_type = $5, ref = $6, retry_count = $7,
		   next_retry_at = $9, last_failed_at = $11`,
		entry.ID, msgJSON, entry.Stage, entry.Error, entry.ErrorType, entry.Ref,
		entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: enqueue dlq")
}

func (s *PostgresStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT id, message, stage, error, error_type, ref, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM dead_letter_queue
	          WHERE next_retry_at <= now() AND retry_count < max_retries`
	args := []any{}
	argIdx := 1

	if filter.Stage != "" {
		query += fmt.Sprintf(` AND stage = $%d`, argIdx)
		args = append(args, filter.Stage)
		argIdx++
	}

	query += ` ORDER BY next_retry_at ASC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limitOr(filter.Limit, 100))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dequeue dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var msgJSON []byte
		if err := rows.Scan(&e.ID, &msgJSON, &e.Stage, &e.Error, &e.ErrorType, &e.Ref,
			&e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dlq entry")
		}
		if err := json.Unmarshal(msgJSON, &e.Message); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal dlq message")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: dequeue dlq iterate")
}

func (s *PostgresStore) IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = $1, error = $2, last_failed_at = now()
		 WHERE id = $3`,
		nextRetryAt, lastErr, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment dlq retry %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("dlq_entry not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dead_letter_queue WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: remove dlq")
}

func (s *PostgresStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count dlq")
}

func scanPostgresLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var tier, priority string
	var qJSON []byte
	if err := row.Scan(&l.ID, &l.Email, &l.Name, &l.Company, &tier, &l.TotalScore, &priority,
		&l.Amount, &l.Interactions, &l.Contacted, &qJSON, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Tier = qualify.Tier(tier)
	l.Priority = qualify.PriorityLevel(priority)
	if err := json.Unmarshal(qJSON, &l.Qualification); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal qualification")
	}
	return &l, nil
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*SQLiteStore)(nil)

