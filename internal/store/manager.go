package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Manager coordinates the hot file and the durable blob. The hot
// layer is authoritative for errors; the blob is best-effort and
// never blocks scheduling.
type Manager struct {
	file   *FileStore
	blob   *BlobStore
	logger logrus.FieldLogger
}

// NewManager creates a persistence manager. blob may be nil when the
// durable layer is disabled.
func NewManager(file *FileStore, blob *BlobStore, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		file:   file,
		blob:   blob,
		logger: logger.WithField("component", "store"),
	}
}

// Load reads the hot file first; if it is missing or older than the
// durable blob, the blob wins. Returns nil, nil on a genuinely fresh
// start. A hot-layer read failure is fatal to the caller.
func (m *Manager) Load(ctx context.Context) (*StateDocument, error) {
	hot, err := m.file.Load()
	if err != nil {
		return nil, err
	}

	if m.blob == nil {
		return hot, nil
	}

	durable, err := m.blob.Load(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("durable state load failed, continuing with hot file")
		return hot, nil
	}
	if durable == nil {
		return hot, nil
	}
	if hot == nil || hot.SavedAt.Before(durable.SavedAt) {
		m.logger.WithField("saved_at", durable.SavedAt).Info("loading state from durable blob")
		return durable, nil
	}
	return hot, nil
}

// Save writes both layers. The hot write's error is returned; the
// durable write is best-effort and only logged.
func (m *Manager) Save(ctx context.Context, doc *StateDocument) error {
	doc.SavedAt = time.Now()

	if err := m.file.Save(doc); err != nil {
		return err
	}

	if m.blob != nil {
		if err := m.blob.Save(ctx, doc); err != nil {
			m.logger.WithError(err).Warn("durable state write failed")
		}
	}
	return nil
}
