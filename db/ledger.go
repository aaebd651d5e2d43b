package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"imagine/logging"
)

// Ledger records outcomes in the background. Prompt tasks call Record from
// many goroutines; a single writer goroutine does the inserts.
type Ledger struct {
	db     *Database
	repo   *Repository
	writer *AsyncWriter
	logger *logging.Logger
}

// OpenLedger opens (and migrates) the ledger at path and starts its writer.
func OpenLedger(path string, logger *logging.Logger) (*Ledger, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	database, err := NewDatabase(path)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		db:     database,
		repo:   NewRepository(database),
		logger: logger.Named("history").With(zap.String("path", path)),
	}
	l.writer = NewAsyncWriter(l.handle)
	l.writer.Start()
	return l, nil
}

// Repository gives direct access to the stored records.
func (l *Ledger) Repository() *Repository {
	return l.repo
}

// Record queues rec for insertion. When the queue is full the record is
// inserted synchronously instead of being dropped. Errors are logged only.
func (l *Ledger) Record(rec HistoryRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if l.writer.Write(rec) {
		return
	}
	l.insert(rec)
}

func (l *Ledger) handle(op WriteOperation) error {
	rec, ok := op.Data.(HistoryRecord)
	if !ok {
		err := fmt.Errorf("invalid operation type %T", op.Data)
		l.logger.Error("history write rejected", zap.Error(err))
		return err
	}
	return l.insert(rec)
}

func (l *Ledger) insert(rec HistoryRecord) error {
	if _, err := l.repo.InsertHistory(context.Background(), rec); err != nil {
		l.logger.Warn("history write failed",
			zap.String("run_id", rec.RunID),
			zap.String("status", rec.Status),
			zap.Error(err))
		return err
	}
	return nil
}

// Close waits for queued records to be written, then closes the database.
func (l *Ledger) Close() error {
	if !l.writer.Close(DefaultDrainTimeout) {
		l.logger.Warn("history writes still pending at close", zap.Int("pending", l.writer.Pending()))
	}
	return l.db.Close()
}
