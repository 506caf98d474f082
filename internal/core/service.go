package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/easydata/internal/logging"
)

// PersistTimeout is the maximum duration for writing a dataset to storage.
var PersistTimeout = 5 * time.Minute

// TableWriter stores an exported dataset as a table and returns the name it
// was written under. The Postgres implementation lives in internal/persist.
type TableWriter interface {
	WriteTable(ctx context.Context, exp Export) (string, error)
}

// ServiceConfig bounds what the service keeps in memory.
type ServiceConfig struct {
	MaxDatasets          int           // 0 means unlimited
	DatasetTTL           time.Duration // idle datasets older than this are evicted; 0 disables
	MaxRows              int           // per upload; 0 means unlimited
	MaxUploadBytes       int64         // per upload; 0 means unlimited
	MaxConcurrentUploads int
	UploadWait           time.Duration
	MaxAuditEntries      int
}

// Service owns the open datasets. Each dataset has its own lock, so
// requests against different datasets run in parallel while changes to one
// dataset are applied one at a time.
type Service struct {
	cfg     ServiceConfig
	writer  TableWriter
	limiter *UploadLimiter
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	mu        sync.Mutex
	id        string
	ds        *Dataset
	audit     *auditLog
	createdAt time.Time
	lastUsed  time.Time
}

// DatasetSummary describes an open dataset.
type DatasetSummary struct {
	ID string `json:"id"`
	DatasetState
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
}

// Snapshot is a page of a dataset's rows with its summary.
type Snapshot struct {
	DatasetSummary
	Offset int   `json:"offset"`
	Rows   []Row `json:"rows"`
}

// NewService creates a Service. writer may be nil, in which case Persist
// fails with ErrPersistenceDisabled.
func NewService(cfg ServiceConfig, writer TableWriter) *Service {
	return &Service{
		cfg:      cfg,
		writer:   writer,
		limiter:  NewUploadLimiter(cfg.MaxConcurrentUploads, cfg.UploadWait),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Limiter exposes the upload limiter for health reporting and shutdown.
func (s *Service) Limiter() *UploadLimiter { return s.limiter }

// PersistenceEnabled reports whether a TableWriter is configured.
func (s *Service) PersistenceEnabled() bool { return s.writer != nil }

// CreateDataset parses r and opens it as a new dataset named sourceName.
func (s *Service) CreateDataset(ctx context.Context, sourceName string, r io.Reader) (DatasetSummary, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return DatasetSummary{}, err
	}
	defer s.limiter.Release()

	raw, err := ReadTable(r, IngestOptions{MaxRows: s.cfg.MaxRows, MaxBytes: s.cfg.MaxUploadBytes})
	if err != nil {
		return DatasetSummary{}, fmt.Errorf("read %s: %w", sourceName, err)
	}
	return s.OpenDataset(ctx, sourceName, raw)
}

// OpenDataset opens already-parsed rows as a new dataset.
func (s *Service) OpenDataset(ctx context.Context, sourceName string, raw RawRows) (DatasetSummary, error) {
	s.EvictExpired()

	now := s.now()
	sess := &session{
		id:        uuid.NewString(),
		ds:        NewDataset(),
		audit:     newAuditLog(s.cfg.MaxAuditEntries),
		createdAt: now,
		lastUsed:  now,
	}
	sess.ds.SetLoading(true)
	sess.ds.Load(sourceName, raw)
	sess.audit.record(ctx, AuditEntry{
		DatasetID:    sess.id,
		Action:       ActionLoad,
		Detail:       sourceName,
		RowsAffected: sess.ds.Len(),
	})

	s.mu.Lock()
	if s.cfg.MaxDatasets > 0 && len(s.sessions) >= s.cfg.MaxDatasets {
		s.mu.Unlock()
		return DatasetSummary{}, fmt.Errorf("%w: limit is %d", ErrTooManyDatasets, s.cfg.MaxDatasets)
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	logging.WithFields(ctx, "dataset_id", sess.id, "source", sourceName).Info("dataset loaded",
		"rows", sess.ds.Len(),
		"columns", len(sess.ds.columns),
	)
	return sess.summary(), nil
}

// Snapshot returns up to limit rows starting at offset. A limit of zero or
// less returns every row from offset on.
func (s *Service) Snapshot(id string, offset, limit int) (*Snapshot, error) {
	var snap *Snapshot
	err := s.withSession(id, func(sess *session) error {
		rows := sess.ds.rows
		if offset < 0 {
			offset = 0
		}
		if offset > len(rows) {
			offset = len(rows)
		}
		end := len(rows)
		if limit > 0 && limit < end-offset {
			end = offset + limit
		}
		page := make([]Row, 0, end-offset)
		for _, row := range rows[offset:end] {
			page = append(page, row.clone())
		}
		snap = &Snapshot{DatasetSummary: sess.summary(), Offset: offset, Rows: page}
		return nil
	})
	return snap, err
}

// Summary returns the summary of one dataset.
func (s *Service) Summary(id string) (DatasetSummary, error) {
	var sum DatasetSummary
	err := s.withSession(id, func(sess *session) error {
		sum = sess.summary()
		return nil
	})
	return sum, err
}

// Apply runs ops against the dataset in order and commits them together.
// If any descriptor is invalid nothing is applied.
func (s *Service) Apply(ctx context.Context, id string, ops []Operation) (*BatchResult, error) {
	var batch *BatchResult
	err := s.withSession(id, func(sess *session) error {
		var err error
		batch, err = sess.ds.ApplyAll(ops)
		if err != nil {
			sess.ds.SetError(err.Error())
			return err
		}
		sess.ds.SetError("")

		logger := logging.WithFields(ctx, "dataset_id", id)
		for i, res := range batch.Results {
			entry := AuditEntry{
				DatasetID:    id,
				Action:       ActionApply,
				ColumnName:   res.Column.Name,
				Operation:    ops[i].Kind,
				Detail:       ops[i].CustomFormula,
				RowsAffected: len(res.Values),
				FailedCells:  res.Failed,
			}
			if res.Overwrote {
				entry.Warning = fmt.Sprintf("column %q already existed and was overwritten", res.Column.Name)
				logger.Warn("column overwritten", "column", res.Column.Name, "operation", ops[i].Kind)
			}
			sess.audit.record(ctx, entry)
			logger.Info("operation applied",
				"column", res.Column.Name,
				"operation", ops[i].Kind,
				"data_type", res.Column.DataType,
				"failed_cells", res.Failed,
			)
		}
		return nil
	})
	return batch, err
}

// DeleteColumn removes a column from the dataset.
func (s *Service) DeleteColumn(ctx context.Context, id, name string) error {
	return s.withSession(id, func(sess *session) error {
		if !sess.ds.DeleteColumn(name) {
			return fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
		sess.audit.record(ctx, AuditEntry{
			DatasetID:    id,
			Action:       ActionDeleteColumn,
			ColumnName:   name,
			RowsAffected: sess.ds.Len(),
		})
		logging.WithFields(ctx, "dataset_id", id, "column", name).Info("column deleted")
		return nil
	})
}

// UpdateColumn changes a column's declared type, format, or both. Either
// argument may be nil to leave that field alone. The update is checked as a
// whole before anything changes.
func (s *Service) UpdateColumn(ctx context.Context, id, name string, dataType *DataType, format *DisplayFormat) error {
	return s.withSession(id, func(sess *session) error {
		col, ok := sess.ds.Column(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}

		newType := col.DataType
		if dataType != nil {
			if !dataType.Valid() {
				return &ValidationError{Field: "dataType", Value: string(*dataType), Message: "unknown data type"}
			}
			newType = *dataType
		}
		if format != nil && *format != "" && !format.Valid() {
			return &ValidationError{Field: "format", Value: string(*format), Message: "unknown display format"}
		}
		if format != nil && *format != "" && *format != FormatNone && newType != TypeNumber {
			return &ValidationError{
				Field:   name,
				Value:   string(*format),
				Message: fmt.Sprintf("format %s requires a Number column, column is %s", *format, newType),
			}
		}

		if dataType != nil {
			if err := sess.ds.UpdateColumnType(name, *dataType); err != nil {
				return err
			}
		}
		if format != nil {
			if err := sess.ds.UpdateColumnFormat(name, *format); err != nil {
				return err
			}
		}

		updated, _ := sess.ds.Column(name)
		sess.audit.record(ctx, AuditEntry{
			DatasetID:  id,
			Action:     ActionUpdateColumn,
			ColumnName: name,
			Detail:     fmt.Sprintf("%s/%s -> %s/%s", col.DataType, col.Format, updated.DataType, updated.Format),
		})
		return nil
	})
}

// Reset empties the dataset but keeps it open.
func (s *Service) Reset(ctx context.Context, id string) error {
	return s.withSession(id, func(sess *session) error {
		rows := sess.ds.Len()
		sess.ds.Reset()
		sess.audit.record(ctx, AuditEntry{DatasetID: id, Action: ActionReset, RowsAffected: rows})
		logging.WithFields(ctx, "dataset_id", id).Info("dataset reset", "rows", rows)
		return nil
	})
}

// Remove closes a dataset and discards it.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// History returns the dataset's changes, newest first.
func (s *Service) History(id string) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := s.withSession(id, func(sess *session) error {
		entries = sess.audit.list()
		return nil
	})
	return entries, err
}

// Export returns the dataset with every value cast to its column type.
func (s *Service) Export(id string) (Export, error) {
	var exp Export
	err := s.withSession(id, func(sess *session) error {
		exp = sess.ds.Export()
		return nil
	})
	return exp, err
}

// Persist writes the dataset through the configured TableWriter. An empty
// table name uses the name derived from the source file.
func (s *Service) Persist(ctx context.Context, id, table string) (string, error) {
	if s.writer == nil {
		return "", ErrPersistenceDisabled
	}
	exp, err := s.Export(id)
	if err != nil {
		return "", err
	}
	if table != "" {
		exp.TableNameCandidate = table
	}

	ctx, cancel := context.WithTimeout(ctx, PersistTimeout)
	defer cancel()

	logger := logging.WithFields(ctx, "dataset_id", id)
	written, err := s.writer.WriteTable(ctx, exp)
	if err != nil {
		logger.Error("persist failed", "table", exp.TableNameCandidate, "error", err)
		return "", err
	}

	err = s.withSession(id, func(sess *session) error {
		sess.audit.record(ctx, AuditEntry{
			DatasetID:    id,
			Action:       ActionPersist,
			Detail:       written,
			RowsAffected: len(exp.Rows),
		})
		return nil
	})
	if err != nil {
		// The dataset was removed while writing; the table still exists.
		logger.Warn("dataset removed during persist", "table", written)
	}
	logger.Info("dataset persisted", "table", written, "rows", len(exp.Rows))
	return written, nil
}

// List returns all open datasets, oldest first.
func (s *Service) List() []DatasetSummary {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	out := make([]DatasetSummary, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		out = append(out, sess.summary())
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// EvictExpired removes datasets idle for longer than the configured TTL and
// returns how many were removed.
func (s *Service) EvictExpired() int {
	if s.cfg.DatasetTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.cfg.DatasetTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// withSession runs fn with the dataset locked and marks it as used.
func (s *Service) withSession(id string, fn func(*session) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = s.now()
	return fn(sess)
}

func (sess *session) summary() DatasetSummary {
	return DatasetSummary{
		ID:           sess.id,
		DatasetState: sess.ds.State(),
		CreatedAt:    sess.createdAt,
		LastUsed:     sess.lastUsed,
	}
}
