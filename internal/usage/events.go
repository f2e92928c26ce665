package usage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"headshot/internal/infra"
	"headshot/internal/sqlinline"
)

const (
	EventGenerate      = "generate"
	EventQuotaDeclined = "quota_declined"
)

// Event is one generation attempt as recorded in usage_events.
type Event struct {
	IdentityID string
	SessionID  uuid.UUID
	Type       string
	Success    bool
	Latency    time.Duration
	Props      map[string]any
}

// EventLog appends attempt records. Without a database it only logs.
type EventLog struct {
	sql    infra.SQLExecutor
	logger zerolog.Logger
}

func NewEventLog(sql infra.SQLExecutor, logger zerolog.Logger) *EventLog {
	return &EventLog{sql: sql, logger: logger}
}

// Record never fails the caller; write errors are logged.
func (l *EventLog) Record(ctx context.Context, ev Event) {
	if l == nil {
		return
	}
	log := l.logger.Info().
		Str("identity", ev.IdentityID).
		Str("session_id", ev.SessionID.String()).
		Str("event", ev.Type).
		Bool("success", ev.Success).
		Dur("latency", ev.Latency)
	if l.sql == nil {
		log.Msg("usage event")
		return
	}
	var props []byte
	if len(ev.Props) > 0 {
		raw, err := json.Marshal(ev.Props)
		if err != nil {
			l.logger.Warn().Err(err).Msg("usage event props not encodable")
		} else {
			props = raw
		}
	}
	if _, err := l.sql.Exec(ctx, sqlinline.QInsertUsageEvent,
		ev.IdentityID, ev.SessionID, ev.Type, ev.Success, int(ev.Latency/time.Millisecond), props,
	); err != nil {
		l.logger.Warn().Err(err).Str("identity", ev.IdentityID).Msg("usage event insert failed")
		return
	}
	log.Msg("usage event")
}
