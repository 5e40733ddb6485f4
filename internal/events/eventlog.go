// Package events keeps an append-only log of learner writes (progress,
// profiles) and content edits made through the gateway.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	TypeProgress = "progress.upsert"
	TypeProfile  = "profile.upsert"
	TypeContent  = "content.upsert"
)

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

type Log struct {
	db     *sql.DB
	siteID string
	now    func() time.Time
}

func NewLog(db *sql.DB, siteID string) *Log {
	if siteID == "" {
		siteID = "local"
	}
	return &Log{db: db, siteID: siteID, now: time.Now}
}

// Append records one event. data is stored as JSON.
func (l *Log) Append(ctx context.Context, typ, key string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		l.siteID, typ, key, string(b), l.now().Unix())
	return err
}

// Since returns up to limit events with seq > after, oldest first.
func (l *Log) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq ASC LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			e    Event
			data string
		)
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
