package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/config"
	"contacts-sync/internal/database"

	"go.uber.org/zap/zapcore"
)

const logBufferSize = 1000

// LogEntry is what the DB core copies out of a zap entry.
type LogEntry struct {
	Level      zapcore.Level
	Logger     string
	Message    string
	IPAddress  string
	CustomerID string
	Provider   string
	RequestID  string
	Caller     string
	Time       time.Time
}

// apply picks up the string fields the logs collection is queried by.
func (e *LogEntry) apply(fields []zapcore.Field) {
	for _, f := range fields {
		if f.Type != zapcore.StringType {
			continue
		}
		switch f.Key {
		case "ip":
			e.IPAddress = f.String
		case "customerId":
			e.CustomerID = f.String
		case "provider":
			e.Provider = f.String
		case "requestId":
			e.RequestID = f.String
		}
	}
}

// DBLogWriter persists entries from a buffered channel on one goroutine.
type DBLogWriter struct {
	appID   string
	insert  func(record common_models.Log)
	entries chan LogEntry
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	collection := mongodb.DB.Collection("logs")
	return newDBLogWriter(cfg.AppId, logBufferSize, func(record common_models.Log) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Errors are ignored so logging can never take the API down.
		_, _ = collection.InsertOne(ctx, record)
	})
}

func newDBLogWriter(appID string, size int, insert func(common_models.Log)) *DBLogWriter {
	w := &DBLogWriter{
		appID:   appID,
		insert:  insert,
		entries: make(chan LogEntry, size),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// AddLog never blocks. Entries are dropped when the buffer is full or the
// writer is closed.
func (w *DBLogWriter) AddLog(entry LogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.entries <- entry:
	default:
		if n := w.dropped.Add(1); n%100 == 1 {
			fmt.Fprintf(os.Stderr, "log buffer full, %d entries dropped so far\n", n)
		}
	}
}

// Dropped reports how many entries never reached the store.
func (w *DBLogWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Close stops accepting entries and waits for the buffer to drain or ctx to end.
func (w *DBLogWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.entries)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *DBLogWriter) run() {
	defer close(w.done)
	for entry := range w.entries {
		w.insert(w.record(entry))
	}
}

func (w *DBLogWriter) record(entry LogEntry) common_models.Log {
	created := entry.Time
	if created.IsZero() {
		created = time.Now()
	}
	return common_models.Log{
		Message:      entry.Message,
		Logger:       entry.Logger,
		IPAddress:    entry.IPAddress,
		CustomerID:   entry.CustomerID,
		Provider:     entry.Provider,
		RequestID:    entry.RequestID,
		Caller:       entry.Caller,
		AppID:        w.appID,
		LogLevelID:   mapLevelToInt(entry.Level),
		CreatedOnUtc: created.UTC(),
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
