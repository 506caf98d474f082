package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/easydata/internal/core"
	"github.com/JonMunkholm/easydata/internal/persist"
)

// DefaultPageSize is the number of rows returned when no limit is given.
const DefaultPageSize = 100

// maxJSONBody bounds request bodies other than uploads.
const maxJSONBody = 1 << 20

// HealthResponse reports liveness and load.
type HealthResponse struct {
	Status      string                   `json:"status"`
	Datasets    int                      `json:"datasets"`
	Uploads     core.UploadLimiterStatus `json:"uploads"`
	Persistence bool                     `json:"persistence"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Datasets:    len(s.service.List()),
		Uploads:     s.service.Limiter().Status(),
		Persistence: s.service.PersistenceEnabled(),
	})
}

// handleCreateDataset reads a multipart upload (field "file") into a new
// dataset.
func (s *Server) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			err = core.ErrNoFile
		}
		respondError(w, r, err)
		return
	}
	defer file.Close()

	sum, err := s.service.CreateDataset(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.List())
}

// handleGetDataset returns a page of rows. Query: offset, limit.
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", DefaultPageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	snap, err := s.service.Snapshot(chi.URLParam(r, "id"), offset, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Remove(chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyRequest accepts either one operation descriptor or a batch under
// "operations".
type applyRequest struct {
	core.Operation
	Operations []core.Operation `json:"operations"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	ops := req.Operations
	if len(ops) == 0 {
		ops = []core.Operation{req.Operation}
	}

	batch, err := s.service.Apply(r.Context(), chi.URLParam(r, "id"), ops)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteColumn(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateColumnRequest changes a column's type, format, or both.
type updateColumnRequest struct {
	DataType *core.DataType      `json:"dataType"`
	Format   *core.DisplayFormat `json:"format"`
}

func (s *Server) handleUpdateColumn(w http.ResponseWriter, r *http.Request) {
	var req updateColumnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.DataType == nil && req.Format == nil {
		respondError(w, r, &core.ValidationError{Field: "body", Message: "dataType or format is required"})
		return
	}

	id, name := chi.URLParam(r, "id"), chi.URLParam(r, "name")
	if err := s.service.UpdateColumn(r.Context(), id, name, req.DataType, req.Format); err != nil {
		respondError(w, r, err)
		return
	}
	sum, err := s.service.Summary(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.Reset(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	sum, err := s.service.Summary(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type persistRequest struct {
	Table string `json:"table"`
}

type persistResponse struct {
	Table string `json:"table"`
}

// handlePersist writes the dataset to a new database table. An empty body
// uses the name derived from the uploaded file.
func (s *Server) handlePersist(w http.ResponseWriter, r *http.Request) {
	var req persistRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, r, err)
			return
		}
	}

	table, err := s.service.Persist(r.Context(), chi.URLParam(r, "id"), req.Table)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, persistResponse{Table: table})
}

// handleExport streams the dataset as CSV or Parquet. Query: format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := persist.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, badRequest("format", err))
		return
	}

	exp, err := s.service.Export(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	name := exp.TableNameCandidate
	if name == "" {
		name = "dataset"
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+format.Extension()))

	opts := persist.ParquetOptions{Compression: s.opts.ParquetCompression}
	if err := persist.WriteFile(w, exp, format, opts); err != nil {
		// Headers are already sent; the client sees a truncated file.
		respondError(w, r, err)
	}
}

type inferRequest struct {
	Values []any `json:"values"`
}

// InferredValue is the inferred type and format of one raw value.
type InferredValue struct {
	Value    any                `json:"value"`
	DataType core.DataType      `json:"dataType"`
	Format   core.DisplayFormat `json:"format"`
}

func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	var req inferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]InferredValue, len(req.Values))
	for i, v := range req.Values {
		t, f := core.Infer(v)
		out[i] = InferredValue{Value: v, DataType: t, Format: f}
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeJSON decodes a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("body", err)
	}
	return nil
}

// intParam parses a non-negative integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, &core.ValidationError{Field: name, Value: val, Message: "must be a non-negative integer"}
	}
	return i, nil
}
