package store

import (
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Role    string // hpo, genes, aliases, omim, benchmark
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file. The modification
// time is truncated to the microsecond precision of a stored TIMESTAMP.
func StatFile(role, path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Role:    role,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC().Truncate(time.Microsecond),
	}, nil
}

// WriteReferenceFiles records the inputs a run was computed from.
func (s *Store) WriteReferenceFiles(runID string, files []FileFingerprint) error {
	for _, f := range files {
		if _, err := s.db.Exec(`INSERT INTO reference_files VALUES (?, ?, ?, ?, ?)`,
			runID, f.Role, f.Path, f.Size, f.ModTime); err != nil {
			return fmt.Errorf("insert reference file: %w", err)
		}
	}
	return nil
}

// ReferenceFiles returns the fingerprints recorded for a run, ordered by role.
func (s *Store) ReferenceFiles(runID string) ([]FileFingerprint, error) {
	rows, err := s.db.Query(`SELECT role, path, size, mod_time
		FROM reference_files WHERE run_id=? ORDER BY role`, runID)
	if err != nil {
		return nil, fmt.Errorf("query reference files: %w", err)
	}
	defer rows.Close()

	var files []FileFingerprint
	for rows.Next() {
		var f FileFingerprint
		if err := rows.Scan(&f.Role, &f.Path, &f.Size, &f.ModTime); err != nil {
			return nil, fmt.Errorf("scan reference file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference files: %w", err)
	}
	return files, nil
}

// Changed reports whether the file on disk differs from the fingerprint.
func (f FileFingerprint) Changed() bool {
	cur, err := StatFile(f.Role, f.Path)
	if err != nil {
		return true
	}
	return cur.Size != f.Size || !cur.ModTime.Equal(f.ModTime)
}

// StaleReferences returns the fingerprints of a run whose files changed on
// disk or disappeared since the run was recorded.
func (s *Store) StaleReferences(runID string) ([]FileFingerprint, error) {
	files, err := s.ReferenceFiles(runID)
	if err != nil {
		return nil, err
	}

	var stale []FileFingerprint
	for _, f := range files {
		if f.Changed() {
			stale = append(stale, f)
		}
	}
	return stale, nil
}
