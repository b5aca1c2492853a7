package engine

import (
	"database/sql"
	"time"

	charmLog "github.com/charmbracelet/log"

	"phasegate/internal/events"
	"phasegate/internal/logging"
	"phasegate/internal/metrics"
	"phasegate/internal/repo"
)

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Logger  *charmLog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// New wires an engine over an already-migrated database. A nil logger
// discards output.
func New(db *sql.DB, logger *charmLog.Logger) Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		Events:  events.Writer{DB: db},
		Logger:  logger,
		Metrics: metrics.Default(),
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() *charmLog.Logger {
	if e.Logger == nil {
		return logging.Discard()
	}
	return e.Logger
}

// observe counts the operation and logs failures other than caller errors.
func (e Engine) observe(op string, err error) {
	e.Metrics.Observe(op, err)
	if err != nil && !isCallerError(err) {
		e.log().Error("operation failed", "op", op, "err", err)
	}
}

// eventWriter keeps the writer clock in step with the engine clock.
func (e Engine) eventWriter() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
