package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"familytasks/internal/repository"

	"go.uber.org/zap"
)

// BackupStore reads and writes whole snapshots of the relational stores
type BackupStore interface {
	Export(ctx context.Context) (*repository.Snapshot, error)
	Import(ctx context.Context, snap *repository.Snapshot) (*repository.ImportStats, error)
	Clear(ctx context.Context) error
}

// BackupService exports the database to JSON and restores it
type BackupService struct {
	store BackupStore
	log   *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(store BackupStore, log *zap.Logger) *BackupService {
	return &BackupService{store: store, log: log}
}

// Export writes a JSON snapshot of every user, family and task to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*repository.Snapshot, error) {
	snap, err := s.store.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export data: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	s.log.Info("Export complete",
		zap.Int("users", len(snap.Users)),
		zap.Int("families", len(snap.Families)),
		zap.Int("tasks", len(snap.Tasks)),
	)
	return snap, nil
}

// Import reads a JSON snapshot from r and restores it. Rows that already
// exist are skipped.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (*repository.ImportStats, error) {
	var snap repository.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse backup: %w", err)
	}
	if snap.Version != repository.SnapshotVersion {
		return nil, fmt.Errorf("unsupported backup version %q", snap.Version)
	}

	s.log.Info("Importing backup",
		zap.Time("exported_at", snap.ExportedAt),
		zap.String("source_dialect", snap.Dialect),
	)

	stats, err := s.store.Import(ctx, &snap)
	if err != nil {
		return nil, fmt.Errorf("failed to import data: %w", err)
	}

	s.log.Info("Import complete",
		zap.Int("users", stats.Users),
		zap.Int("families", stats.Families),
		zap.Int("tasks", stats.Tasks),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// Clear deletes all data
func (s *BackupService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}
	s.log.Warn("All data cleared")
	return nil
}

// ExportFile writes a snapshot to path, creating parent directories
func (s *BackupService) ExportFile(ctx context.Context, path string) (*repository.Snapshot, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	snap, err := s.Export(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close backup file: %w", cerr)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ImportFile restores the snapshot stored at path
func (s *BackupService) ImportFile(ctx context.Context, path string) (*repository.ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f)
}
