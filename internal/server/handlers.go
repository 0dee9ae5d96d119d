package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/park285/lootsync/internal/catalog"
	"github.com/park285/lootsync/internal/history"
	"github.com/park285/lootsync/internal/loot"
	"github.com/park285/lootsync/internal/lootlog"
	"github.com/park285/lootsync/internal/metrics"
	"github.com/park285/lootsync/pkg/lootdto"
)

const (
	maxSearchNames  = 500
	maxSearchBody   = 1 << 20
	multipartMemory = 32 << 20
)

func (s *Server) fail(w http.ResponseWriter, status int, key string, data any) {
	respondError(w, status, key, s.deps.Messages.Text(key, data))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	field := s.cfg.UploadField

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.rejectUpload(w, http.StatusRequestEntityTooLarge, "upload.too_large", map[string]any{"Max": s.cfg.MaxUploadBytes}, err)
			return
		}
		s.rejectUpload(w, http.StatusBadRequest, "upload.no_file", map[string]any{"Field": field}, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[field]
	if len(files) != 1 {
		s.rejectUpload(w, http.StatusBadRequest, "upload.no_file", map[string]any{"Field": field}, nil)
		return
	}
	f, err := files[0].Open()
	if err != nil {
		s.rejectUpload(w, http.StatusBadRequest, "upload.read_failed", nil, err)
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		s.rejectUpload(w, http.StatusBadRequest, "upload.read_failed", nil, err)
		return
	}
	if len(data) == 0 {
		s.rejectUpload(w, http.StatusBadRequest, "upload.empty", nil, nil)
		return
	}

	entries, err := s.deps.Parser.Parse(string(data))
	if err != nil {
		if errors.Is(err, lootlog.ErrNoLootData) {
			s.rejectUpload(w, http.StatusBadRequest, "upload.no_loot", nil, err)
			return
		}
		s.rejectUpload(w, http.StatusBadRequest, "upload.read_failed", nil, err)
		return
	}

	stored := s.deps.Hub.PublishSnapshot(entries)
	metrics.UploadsTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.ParsedEntriesTotal.Add(float64(len(stored)))
	s.log.Info("upload_parsed",
		zap.String("file", files[0].Filename),
		zap.Int64("size", files[0].Size),
		zap.Int("count", len(stored)),
	)
	respondJSON(w, http.StatusOK, lootdto.UploadResponse{Count: len(stored), Items: loot.ToDTOs(stored)})
}

func (s *Server) rejectUpload(w http.ResponseWriter, status int, key string, data any, err error) {
	metrics.UploadsTotal.WithLabelValues(metrics.ResultRejected).Inc()
	fields := []zap.Field{zap.String("reason", key), zap.Int("status", status)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.log.Warn("upload_rejected", fields...)
	s.fail(w, status, key, data)
}

func (s *Server) handleLoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, lootdto.LootListUpdate{
		Type:  lootdto.TypeLootListUpdate,
		Items: loot.ToDTOs(s.deps.Hub.State().Snapshot()),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := s.deps.History.List(r.Context())
	if err != nil {
		s.log.Error("history_list_failed", zap.Error(err))
		s.fail(w, http.StatusInternalServerError, "history.unavailable", nil)
		return
	}
	respondJSON(w, http.StatusOK, history.ToDTOs(recs))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req lootdto.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBody)).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "request.invalid_json", nil)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			s.fail(w, http.StatusBadRequest, "request.too_many_names", map[string]any{"Max": maxSearchNames})
			return
		}
		s.fail(w, http.StatusBadRequest, "request.missing_names", nil)
		return
	}

	found := s.deps.Catalog.Search(req.Names)
	items := make([]lootdto.CatalogItem, 0, len(found))
	for _, e := range found {
		items = append(items, catalog.ToDTO(e))
	}
	respondJSON(w, http.StatusOK, lootdto.SearchResponse{Items: items})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, lootdto.Health{
		Status:  "ok",
		Catalog: s.deps.Catalog.Len(),
		Clients: s.deps.Hub.ClientCount(),
		Entries: s.deps.Hub.State().Len(),
	})
}
