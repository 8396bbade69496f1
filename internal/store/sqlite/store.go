// Package sqlite persists a best-effort, append-only audit log of provider
// interactions, off the request hot path. Grounded on the teacher's
// internal/storage/sqlite.Store (sql.Open("sqlite", ...), WAL pragmas,
// CREATE TABLE IF NOT EXISTS schema init) and ImJafran-aeon's
// internal/memory.Store (additional cache/mmap pragmas, plain
// database/sql over modernc.org/sqlite with no ORM), simplified from both
// repos' rich multi-table conversation/response schemas down to the single
// append-only interactions table this gateway needs. The buffered-channel
// single-writer-goroutine shape has no in-pack precedent (both grounding
// stores write synchronously on the caller's goroutine); it's built to
// keep sqlite writes off the request hot path per spec, using the
// language's own worker-goroutine-plus-channel idiom rather than a queue
// library the pack never imports.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relaywell/cligateway/internal/core/domain"
)

// queueDepth bounds how many pending records the writer goroutine may lag
// behind by before Record starts dropping entries.
const queueDepth = 256

// Record is one logged provider interaction.
type Record struct {
	RequestID     string
	ModelID       string
	ProviderID    string
	ProviderModel string
	OutputText    string
	FinishReason  string
	ErrorMessage  string
	DurationMs    int64
	CreatedAt     time.Time
}

// Store appends Records to a SQLite database from a single writer
// goroutine fed by a buffered channel, so a slow disk never blocks a
// request.
type Store struct {
	db     *sql.DB
	queue  chan Record
	done   chan struct{}
	logger *slog.Logger
}

// Open creates or opens the audit database at path and starts its writer
// goroutine. Callers must call Close to flush and release the queue.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		db:     db,
		queue:  make(chan Record, queueDepth),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.run()
	return s, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			provider_id TEXT,
			provider_model TEXT,
			output_text TEXT,
			finish_reason TEXT,
			error_message TEXT,
			duration_ms INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_interactions_model ON interactions(model_id);
		CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at);
	`)
	return err
}

// Record queues an interaction for persistence. Best-effort: if the writer
// is lagging and the queue is full, the record is dropped and logged
// rather than blocking the caller.
func (s *Store) Record(rec Record) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	select {
	case s.queue <- rec:
	default:
		s.logger.Warn("interaction log queue full, dropping record",
			slog.String("request_id", rec.RequestID))
	}
}

// LogAttempt is a convenience wrapper building a Record from a dispatch
// outcome: result is nil on failure, in which case err's message is stored.
func (s *Store) LogAttempt(requestID, modelID, providerID, providerModel string, result *domain.ProviderResult, err error, duration time.Duration) {
	rec := Record{
		RequestID:     requestID,
		ModelID:       modelID,
		ProviderID:    providerID,
		ProviderModel: providerModel,
		DurationMs:    duration.Milliseconds(),
	}
	if result != nil {
		rec.OutputText = result.OutputText
		rec.FinishReason = string(result.FinishReason)
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	s.Record(rec)
}

func (s *Store) run() {
	defer close(s.done)
	for rec := range s.queue {
		if err := s.insert(rec); err != nil {
			s.logger.Warn("failed to persist interaction record", slog.Any("error", err))
		}
	}
}

func (s *Store) insert(rec Record) error {
	_, err := s.db.Exec(`
		INSERT INTO interactions (
			request_id, model_id, provider_id, provider_model,
			output_text, finish_reason, error_message, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.ModelID, rec.ProviderID, rec.ProviderModel,
		rec.OutputText, rec.FinishReason, rec.ErrorMessage, rec.DurationMs, rec.CreatedAt,
	)
	return err
}

// ListRecent returns the most recent interactions, newest first, for the
// admin surface. limit <= 0 defaults to 100.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, model_id, provider_id, provider_model,
		       output_text, finish_reason, error_message, duration_ms, created_at
		FROM interactions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var providerID, providerModel, outputText, finishReason, errMsg sql.NullString
		if err := rows.Scan(&r.RequestID, &r.ModelID, &providerID, &providerModel,
			&outputText, &finishReason, &errMsg, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		r.ProviderID = providerID.String
		r.ProviderModel = providerModel.String
		r.OutputText = outputText.String
		r.FinishReason = finishReason.String
		r.ErrorMessage = errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close stops accepting new records, waits for the writer goroutine to
// drain the queue, and closes the database.
func (s *Store) Close() error {
	close(s.queue)
	<-s.done
	return s.db.Close()
}
