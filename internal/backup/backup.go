// Package backup takes rotating snapshots of the campusdesk database.
//
// Snapshots are written with VACUUM INTO so they include pages still held in
// the WAL. They are named <db>.bak.1, <db>.bak.2 and so on, where 1 is the
// most recent.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/internal/config"
)

// Manager snapshots one database.
type Manager struct {
	conn   *sql.DB
	prefix string
	dir    string
	cfg    config.BackupConfig
	now    func() time.Time
}

// NewManager creates a manager for the database at dbPath reachable through conn.
func NewManager(conn *sql.DB, dbPath string, cfg config.BackupConfig) *Manager {
	dir := cfg.Path
	if dir == "" {
		dir = filepath.Dir(dbPath)
	}
	return &Manager{
		conn:   conn,
		prefix: filepath.Base(dbPath) + ".bak.",
		dir:    dir,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Dir returns the directory snapshots are written to.
func (m *Manager) Dir() string {
	return m.dir
}

// Snapshot writes a new snapshot unconditionally and returns its path.
// It returns "" when backups are disabled.
func (m *Manager) Snapshot(ctx context.Context) (string, error) {
	if !m.cfg.Enabled {
		return "", nil
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	if err := m.rotate(); err != nil {
		return "", fmt.Errorf("rotating backups: %w", err)
	}

	path := m.path(1)
	if _, err := m.conn.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}

// SnapshotIfStale snapshots only when the newest snapshot is older than the
// configured interval, or none exists.
func (m *Manager) SnapshotIfStale(ctx context.Context) (string, error) {
	if !m.cfg.Enabled {
		return "", nil
	}
	stale, err := m.stale()
	if err != nil {
		return "", err
	}
	if !stale {
		return "", nil
	}
	return m.Snapshot(ctx)
}

func (m *Manager) stale() (bool, error) {
	files, err := m.List()
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return true, nil
	}
	info, err := os.Stat(files[0])
	if err != nil {
		return false, fmt.Errorf("stat backup file: %w", err)
	}
	interval := time.Duration(m.cfg.IntervalHours) * time.Hour
	return m.now().Sub(info.ModTime()) > interval, nil
}

type snapshot struct {
	path   string
	number int
}

func (m *Manager) scan() ([]snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var found []snapshot
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, m.prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, m.prefix))
		if err != nil || n < 1 {
			continue
		}
		found = append(found, snapshot{path: filepath.Join(m.dir, name), number: n})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].number < found[j].number })
	return found, nil
}

// List returns existing snapshot paths, newest first.
func (m *Manager) List() ([]string, error) {
	found, err := m.scan()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(found))
	for i, s := range found {
		paths[i] = s.path
	}
	return paths, nil
}

// rotate shifts bak.N to bak.N+1, dropping anything past MaxCount, so bak.1
// is free for the next snapshot.
func (m *Manager) rotate() error {
	found, err := m.scan()
	if err != nil {
		return err
	}
	for i := len(found) - 1; i >= 0; i-- {
		s := found[i]
		next := s.number + 1
		if next > m.cfg.MaxCount {
			if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("deleting old backup %s: %w", s.path, err)
			}
			continue
		}
		if err := os.Rename(s.path, m.path(next)); err != nil {
			return fmt.Errorf("renaming backup %s: %w", s.path, err)
		}
	}
	return nil
}

func (m *Manager) path(n int) string {
	return filepath.Join(m.dir, m.prefix+strconv.Itoa(n))
}
