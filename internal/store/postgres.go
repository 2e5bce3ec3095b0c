package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema if it does not exist (dev helper).
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS payment_orders (
			order_id   text PRIMARY KEY,
			state      text NOT NULL,
			paid_at    timestamptz,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS payment_callbacks (
			id          uuid PRIMARY KEY,
			order_id    text NOT NULL,
			format      text NOT NULL,
			status      text NOT NULL,
			outcome     text NOT NULL,
			detail      text,
			received_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS notification_deliveries (
			id              uuid PRIMARY KEY,
			event_type      text NOT NULL,
			url             text NOT NULL,
			secret          text NOT NULL DEFAULT '',
			payload         bytea NOT NULL,
			attempts        int NOT NULL DEFAULT 0,
			delivered       bool NOT NULL DEFAULT false,
			failed          bool NOT NULL DEFAULT false,
			next_attempt_at timestamptz NOT NULL DEFAULT now(),
			last_error      text,
			response_code   int,
			latency_ms      int,
			created_at      timestamptz NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	var paidAt sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT order_id, state, paid_at, updated_at FROM payment_orders WHERE order_id=$1`, orderID).
		Scan(&o.OrderID, &o.State, &paidAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	return o, nil
}

func (p *Postgres) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO payment_orders (order_id, state, paid_at, updated_at)
		VALUES ($1, 'paid', now(), now())
		ON CONFLICT (order_id) DO UPDATE
		SET state='paid', paid_at=now(), updated_at=now()
		WHERE payment_orders.state <> 'paid'`, orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Postgres) MarkCanceled(ctx context.Context, orderID string) error {
	return p.setState(ctx, orderID, StateCanceled)
}

func (p *Postgres) MarkFailed(ctx context.Context, orderID string) error {
	return p.setState(ctx, orderID, StateError)
}

func (p *Postgres) setState(ctx context.Context, orderID string, st OrderState) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payment_orders (order_id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (order_id) DO UPDATE SET state=$2, updated_at=now()`, orderID, st)
	return err
}

func (p *Postgres) RecordCallback(ctx context.Context, rec CallbackRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payment_callbacks (id, order_id, format, status, outcome, detail)
		VALUES ($1,$2,$3,$4,$5,$6)`, id, rec.OrderID, rec.Format, rec.Status, rec.Outcome, rec.Detail)
	return err
}

func (p *Postgres) ListCallbacks(ctx context.Context, orderID string, limit int) ([]CallbackRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, order_id, format, status, outcome, COALESCE(detail,''), received_at
		FROM payment_callbacks
		WHERE ($1 = '' OR order_id = $1)
		ORDER BY received_at DESC LIMIT $2`, orderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CallbackRecord{}
	for rows.Next() {
		var rec CallbackRecord
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.Format, &rec.Status, &rec.Outcome, &rec.Detail, &rec.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) EnqueueNotification(ctx context.Context, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO notification_deliveries (id, event_type, url, secret, payload)
		VALUES ($1,$2,$3,$4,$5)`, id, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueNotifications(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, event_type, url, secret, payload, attempts
		FROM notification_deliveries
		WHERE NOT delivered AND NOT failed AND next_attempt_at <= now()
		ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.EventType, &n.URL, &n.Secret, &n.Payload, &n.Attempts); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkNotification(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	next := time.Now()
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx, `
		UPDATE notification_deliveries
		SET attempts = attempts + 1,
		    delivered = $2,
		    next_attempt_at = $3,
		    last_error = $4,
		    response_code = $5,
		    latency_ms = $6
		WHERE id = $1`, id, success, next, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailNotification(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE notification_deliveries
		SET attempts = attempts + 1,
		    failed = true,
		    last_error = $2,
		    response_code = $3,
		    latency_ms = $4
		WHERE id = $1`, id, lastError, responseCode, latencyMs)
	return err
}
