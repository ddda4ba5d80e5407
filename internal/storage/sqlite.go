package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/pkg/utils"
)

const secondsPerDay = 86400.0

// SQLiteStorage implements UsageStore using SQLite. Writes are additionally serialized
// across processes with a lock file next to the database.
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	lock   *FileLock
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithClock overrides the time source used for activation timestamps and decay.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteStorage) { s.logger = utils.OrNop(l) }
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStorage{
		db:     db,
		path:   dbPath,
		lock:   NewFileLock(dir, ".usage.lock"),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS usages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		activated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usages_item_id ON usages(item_id);
	CREATE INDEX IF NOT EXISTS idx_usages_activated_at ON usages(activated_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string { return s.path }

// RecordUsage inserts an activation. A zero ActivatedAt uses the storage clock.
func (s *SQLiteStorage) RecordUsage(ctx context.Context, u Usage) error {
	if u.ItemID == "" {
		return fmt.Errorf("record usage: empty item id")
	}
	if u.ActivatedAt.IsZero() {
		u.ActivatedAt = s.now()
	}
	if err := s.lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("release usage lock", zap.Error(err))
		}
	}()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usages (item_id, provider, activated_at) VALUES (?, ?, ?)`,
		u.ItemID, u.Provider, u.ActivatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage: %w", err)
	}
	s.logger.Debug("usage recorded", zap.String("item_id", u.ItemID))
	return nil
}

// RecordActivation records that item was activated now.
func (s *SQLiteStorage) RecordActivation(ctx context.Context, item *models.Item) error {
	return s.RecordUsage(ctx, Usage{ItemID: item.ID, Provider: item.Provider})
}

// LoadWeights sums 1/(age_days+1) over every activation of an item and normalizes by the
// maximum, so recent activations count more than old ones.
func (s *SQLiteStorage) LoadWeights(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, SUM(1.0 / (MAX(? - activated_at, 0) / ? + 1.0))
		 FROM usages GROUP BY item_id`,
		s.now().Unix(), secondsPerDay,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage weights: %w", err)
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var id string
		var w float64
		if err := rows.Scan(&id, &w); err != nil {
			return nil, err
		}
		weights[id] = w
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	utils.NormalizeMax(weights)
	return weights, nil
}

// ListUsages returns the most recent activations first.
func (s *SQLiteStorage) ListUsages(ctx context.Context, limit int) ([]Usage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, provider, activated_at FROM usages
		 ORDER BY activated_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Usage
	for rows.Next() {
		var u Usage
		var at int64
		if err := rows.Scan(&u.ItemID, &u.Provider, &at); err != nil {
			return nil, err
		}
		u.ActivatedAt = time.Unix(at, 0)
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountUsages returns the number of recorded activations.
func (s *SQLiteStorage) CountUsages(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usages`).Scan(&n)
	return n, err
}

// Prune deletes activations older than before and returns how many were removed.
func (s *SQLiteStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	if err := s.lock.Lock(); err != nil {
		return 0, err
	}
	defer func() { _ = s.lock.Unlock() }()
	res, err := s.db.ExecContext(ctx, `DELETE FROM usages WHERE activated_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune usages: %w", err)
	}
	return res.RowsAffected()
}

// DiskUsage returns the size of the database file plus its -wal and -shm companions.
// Companions that do not exist yet count as zero.
func (s *SQLiteStorage) DiskUsage() (int64, error) {
	var total int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(s.path + suffix)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to stat database file: %w", err)
		}
		total += info.Size()
	}
	return total, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
