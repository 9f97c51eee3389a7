package storage

import (
	"context"
	"database/sql"
	"fmt"

	"supportdesk/internal/models"
)

// UploadStore keeps an advisory ledger of files stored under the upload
// directory. The filesystem stays authoritative: rows here exist for
// bookkeeping and are pruned whenever the file itself is removed.
type UploadStore struct {
	db *sql.DB
}

func NewUploadStore(db *sql.DB) *UploadStore {
	return &UploadStore{db: db}
}

// Record inserts a ledger row for a newly stored file and fills in the
// generated ID.
func (s *UploadStore) Record(ctx context.Context, up *models.Upload) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (stored_name, original_name, mime_type, file_type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		up.StoredName, up.OriginalName, up.MimeType, string(up.FileType), up.Size, up.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		up.ID = id
	}
	return nil
}

// Remove deletes the ledger row for a stored file, if one exists.
func (s *UploadStore) Remove(ctx context.Context, storedName string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE stored_name = ?`, storedName); err != nil {
		return fmt.Errorf("remove upload %s: %w", storedName, err)
	}
	return nil
}
