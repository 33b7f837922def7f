package repository

import (
	"context"

	"github.com/noah-isme/room-usage-monitor/internal/models"
	"github.com/noah-isme/room-usage-monitor/pkg/storage"
)

// FileStatusRepository writes the rendered report to a local file, for
// example a directory served as a static site.
type FileStatusRepository struct {
	storage  *storage.LocalStorage
	fileName string
}

// NewFileStatusRepository stores reports as fileName under the storage root.
func NewFileStatusRepository(store *storage.LocalStorage, fileName string) *FileStatusRepository {
	if fileName == "" {
		fileName = "status.json"
	}
	return &FileStatusRepository{storage: store, fileName: fileName}
}

// Name identifies the publisher in logs and metrics.
func (r *FileStatusRepository) Name() string { return "file" }

// Publish replaces the status document.
func (r *FileStatusRepository) Publish(_ context.Context, _ models.StatusReport, payload []byte) error {
	_, err := r.storage.Save(r.fileName, payload)
	return err
}
