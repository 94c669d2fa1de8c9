package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; one connection keeps them all in effect.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS replies (
	id             TEXT PRIMARY KEY,
	message_key    TEXT NOT NULL UNIQUE,
	email          TEXT NOT NULL,
	campaign_id    TEXT NOT NULL DEFAULT '',
	response_type  TEXT NOT NULL,
	confidence     REAL NOT NULL,
	message        TEXT NOT NULL,
	classification TEXT NOT NULL,
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	company       TEXT NOT NULL DEFAULT '',
	tier          TEXT NOT NULL,
	total_score   INTEGER NOT NULL,
	priority      TEXT NOT NULL,
	amount        INTEGER NOT NULL DEFAULT 0,
	interactions  INTEGER NOT NULL DEFAULT 0,
	contacted     INTEGER NOT NULL DEFAULT 0,
	qualification TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS follow_ups (
	id         TEXT PRIMARY KEY,
	lead_email TEXT NOT NULL,
	day_offset INTEGER NOT NULL,
	action     TEXT NOT NULL,
	channel    TEXT NOT NULL,
	due_at     DATETIME NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS autoresponses (
	id            TEXT PRIMARY KEY,
	reply_id      TEXT NOT NULL,
	email         TEXT NOT NULL,
	response_type TEXT NOT NULL,
	template_id   TEXT NOT NULL,
	subject       TEXT NOT NULL,
	provider_id   TEXT NOT NULL DEFAULT '',
	suppressed    INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	message        TEXT NOT NULL,
	stage          TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL,
	ref            TEXT NOT NULL DEFAULT '',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL,
	last_failed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_replies_email ON replies(email);
CREATE INDEX IF NOT EXISTS idx_replies_created_at ON replies(created_at);
CREATE INDEX IF NOT EXISTS idx_leads_tier ON leads(tier);
CREATE INDEX IF NOT EXISTS idx_follow_ups_due ON follow_ups(status, due_at);
CREATE INDEX IF NOT EXISTS idx_follow_ups_email ON follow_ups(lead_email);
CREATE INDEX IF NOT EXISTS idx_autoresponses_created_at ON autoresponses(created_at);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Replies ---

func (s *SQLiteStore) SaveReply(ctx context.Context, reply *model.Reply) error {
	msgJSON, err := json.Marshal(reply.Message)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal message")
	}
	clsJSON, err := json.Marshal(reply.Classification)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal classification")
	}

	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO replies (id, message_key, email, campaign_id, response_type, confidence, message, classification, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(message_key) DO NOTHING`,
		reply.ID, reply.MessageKey, reply.Message.SenderEmail, reply.Message.CampaignID,
		string(reply.Classification.ResponseType), reply.Classification.Confidence,
		string(msgJSON), string(clsJSON), reply.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert reply")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrDuplicate, "sqlite: reply %s", reply.MessageKey)
	}
	return nil
}

func (s *SQLiteStore) IsProcessed(ctx context.Context, messageKey string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM replies WHERE message_key = ?`, messageKey).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: is processed")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListReplies(ctx context.Context, filter ReplyFilter) ([]model.Reply, error) {
	query := `SELECT id, message_key, message, classification, created_at FROM replies WHERE 1=1`
	var args []any

	if filter.Email != "" {
		query += ` AND email = ?`
		args = append(args, filter.Email)
	}
	if filter.ResponseType != "" {
		query += ` AND response_type = ?`
		args = append(args, string(filter.ResponseType))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOr(filter.Limit, 100))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list replies")
	}
	defer rows.Close()

	var replies []model.Reply
	for rows.Next() {
		var r model.Reply
		var msgJSON, clsJSON string
		if err := rows.Scan(&r.ID, &r.MessageKey, &msgJSON, &clsJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan reply")
		}
		if err := json.Unmarshal([]byte(msgJSON), &r.Message); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal message")
		}
		if err := json.Unmarshal([]byte(clsJSON), &r.Classification); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal classification")
		}
		replies = append(replies, r)
	}
	return replies, eris.Wrap(rows.Err(), "sqlite: list replies iterate")
}

// --- Leads ---

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	qJSON, err := json.Marshal(lead.Qualification)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal qualification")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, email, name, company, tier, total_score, priority, amount, interactions, contacted, qualification, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   name = excluded.name, company = excluded.company, tier = excluded.tier,
		   total_score = excluded.total_score, priority = excluded.priority, amount = excluded.amount,
		   interactions = excluded.interactions, qualification = excluded.qualification,
		   updated_at = excluded.updated_at`,
		uuid.New().String(), lead.Email, lead.Name, lead.Company, string(lead.Tier),
		lead.TotalScore, string(lead.Priority), lead.Amount, lead.Interactions, lead.Contacted,
		string(qJSON), now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert lead %s", lead.Email)
	}

	err = s.db.QueryRowContext(ctx, `SELECT id, contacted, created_at FROM leads WHERE email = ?`, lead.Email).
		Scan(&lead.ID, &lead.Contacted, &lead.CreatedAt)
	if err != nil {
		return eris.Wrapf(err, "sqlite: read back lead %s", lead.Email)
	}
	lead.UpdatedAt = now
	return nil
}

const sqliteLeadColumns = `id, email, name, company, tier, total_score, priority, amount, interactions, contacted, qualification, created_at, updated_at`

func (s *SQLiteStore) GetLead(ctx context.Context, email string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteLeadColumns+` FROM leads WHERE email = ?`, email)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return lead, err
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + sqliteLeadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(filter.Priority))
	}
	if filter.Uncontacted {
		query += ` AND contacted = 0`
	}
	if filter.MinScore > 0 {
		query += ` AND total_score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY total_score DESC, amount DESC LIMIT ?`
	args = append(args, limitOr(filter.Limit, 100))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) MarkContacted(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET contacted = 1, updated_at = ? WHERE email = ?`,
		time.Now().UTC(), email,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark contacted %s", email)
	}
	return checkRowsAffected(res, "lead", email)
}

// DeleteLead removes a lead. Deleting a missing lead is not an error.
func (s *SQLiteStore) DeleteLead(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE email = ?`, email)
	return eris.Wrapf(err, "sqlite: delete lead %s", email)
}

// --- Follow-ups ---

func (s *SQLiteStore) CreateFollowUps(ctx context.Context, followUps []model.FollowUp) error {
	if len(followUps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin follow-ups")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO follow_ups (id, lead_email, day_offset, action, channel, due_at, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare follow-up insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range followUps {
		f := &followUps[i]
		prepareFollowUp(f, now)
		if _, err := stmt.ExecContext(ctx, f.ID, f.LeadEmail, f.DayOffset, f.Action,
			string(f.Channel), f.DueAt.UTC(), string(f.Status), f.CreatedAt); err != nil {
			return eris.Wrapf(err, "sqlite: insert follow-up for %s", f.LeadEmail)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit follow-ups")
}

func (s *SQLiteStore) DueFollowUps(ctx context.Context, before time.Time, limit int) ([]model.FollowUp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_email, day_offset, action, channel, due_at, status, created_at
		 FROM follow_ups WHERE status = ? AND due_at <= ?
		 ORDER BY due_at ASC LIMIT ?`,
		string(model.FollowUpPending), before.UTC(), limitOr(limit, 100),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: due follow-ups")
	}
	defer rows.Close()

	var out []model.FollowUp
	for rows.Next() {
		var f model.FollowUp
		if err := rows.Scan(&f.ID, &f.LeadEmail, &f.DayOffset, &f.Action, &f.Channel,
			&f.DueAt, &f.Status, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan follow-up")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: due follow-ups iterate")
}

func (s *SQLiteStore) SetFollowUpStatus(ctx context.Context, id string, status model.FollowUpStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE follow_ups SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set follow-up status %s", id)
	}
	return checkRowsAffected(res, "follow-up", id)
}

func (s *SQLiteStore) CancelFollowUps(ctx context.Context, email string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE follow_ups SET status = ? WHERE lead_email = ? AND status = ?`,
		string(model.FollowUpCancelled), email, string(model.FollowUpPending),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: cancel follow-ups %s", email)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// --- Autoresponses ---

func (s *SQLiteStore) LogAutoresponse(ctx context.Context, ar *model.Autoresponse) error {
	if ar.ID == "" {
		ar.ID = uuid.New().String()
	}
	if ar.CreatedAt.IsZero() {
		ar.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO autoresponses (id, reply_id, email, response_type, template_id, subject, provider_id, suppressed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ar.ID, ar.ReplyID, ar.Email, string(ar.ResponseType), ar.TemplateID, ar.Subject,
		ar.ProviderID, ar.Suppressed, ar.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: log autoresponse")
}

func (s *SQLiteStore) AutoresponseStats(ctx context.Context, now time.Time) (*AutoresponseStats, error) {
	stats := &AutoresponseStats{ByType: make(map[string]int)}
	now = now.UTC()

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN suppressed THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		 FROM autoresponses`,
		now.Add(-24*time.Hour), now.Add(-7*24*time.Hour),
	).Scan(&stats.Total, &stats.Suppressed, &stats.Last24Hours, &stats.Last7Days)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: autoresponse totals")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT response_type, COUNT(*) FROM autoresponses GROUP BY response_type`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: autoresponse by type")
	}
	defer rows.Close()
	for rows.Next() {
		var rt string
		var n int
		if err := rows.Scan(&rt, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan autoresponse type")
		}
		stats.ByType[rt] = n
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: autoresponse by type iterate")
}

// --- Dead letter queue ---

func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	msgJSON, err := json.Marshal(entry.Message)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dlq message")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dead_letter_queue
		 (id, message, stage, error, error_type, ref, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   error = excluded.error, error_type = excluded.error_type, stage = excluded.stage,
		   ref = excluded.ref, retry_count = excluded.retry_count, next_retry_at = excluded.next_retry_at,
		   last_failed_at = excluded.last_failed_at`,
		entry.ID, string(msgJSON), entry.Stage, entry.Error, entry.ErrorType, entry.Ref,
		entry.RetryCount, entry.MaxRetries, entry.NextRetryAt.UTC(),
		entry.CreatedAt.UTC(), entry.LastFailedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: enqueue dlq")
}

func (s *SQLiteStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT id, message, stage, error, error_type, ref, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM dead_letter_queue
	          WHERE next_retry_at <= ? AND retry_count < max_retries`
	args := []any{time.Now().UTC()}

	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, filter.Stage)
	}
	query += ` ORDER BY next_retry_at ASC LIMIT ?`
	args = append(args, limitOr(filter.Limit, 100))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dequeue dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var msgJSON string
		if err := rows.Scan(&e.ID, &msgJSON, &e.Stage, &e.Error, &e.ErrorType, &e.Ref, &e.RetryCount,
			&e.MaxRetries, &e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		if err := json.Unmarshal([]byte(msgJSON), &e.Message); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal dlq message")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: dequeue dlq iterate")
}

func (s *SQLiteStore) IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = ?, error = ?, last_failed_at = ?
		 WHERE id = ?`,
		nextRetryAt.UTC(), lastErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment dlq retry %s", id)
	}
	return checkRowsAffected(res, "dlq_entry", id)
}

func (s *SQLiteStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove dlq")
}

func (s *SQLiteStore) CountDLQ(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count dlq")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var qJSON string
	err := row.Scan(&l.ID, &l.Email, &l.Name, &l.Company, &l.Tier, &l.TotalScore, &l.Priority,
		&l.Amount, &l.Interactions, &l.Contacted, &qJSON, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}
	if err := json.Unmarshal([]byte(qJSON), &l.Qualification); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal qualification")
	}
	return &l, nil
}

// prepareFollowUp fills defaults on a follow-up about to be inserted.
func prepareFollowUp(f *model.FollowUp, now time.Time) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.Status == "" {
		f.Status = model.FollowUpPending
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
}
