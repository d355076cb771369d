package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/boxes"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/extract"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/prices"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/raster"
)

// server holds what the HTTP handlers need. Handlers share no document
// state; every request opens its own. The box model preference is shared
// by all requests of one server.
type server struct {
	logger    zerolog.Logger
	orch      *extract.Orchestrator
	rewriter  *prices.Rewriter
	pref      *boxes.Preference
	maxUpload int64
}

// newRouter wires the API routes.
func newRouter(s *server) http.Handler {
	if s.pref == nil {
		s.pref = boxes.NewPreference()
	}
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"pdfcatalog"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/regions", s.regions)
		r.Post("/prices", s.prices)
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// RegionDTO is one cropped region. Bounds are x0, y0, x1, y1 in pixels of
// the rendered page.
type RegionDTO struct {
	Kind     string `json:"kind"`
	Position string `json:"position"`
	Bounds   [4]int `json:"bounds"`
	PNG      string `json:"png,omitempty"`
}

// RegionsResponseDTO is the response of POST /v1/regions.
type RegionsResponseDTO struct {
	RunID         string      `json:"runId"`
	Page          int         `json:"page"`
	Strategy      string      `json:"strategy"`
	Illustrations []RegionDTO `json:"illustrations"`
	Drawings      []RegionDTO `json:"drawings"`
}

// regions handles POST /v1/regions?page=N[&images=false] with the PDF as
// the request body. page is 1-based and defaults to 1.
func (s *server) regions(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid page", err.Error())
		return
	}
	withImages := r.URL.Query().Get("images") != "false"

	data, ok := s.readBody(w, r)
	if !ok {
		return
	}

	found, err := s.orch.ExtractRegions(boxes.WithPreference(r.Context(), s.pref), data, page-1)
	if err != nil {
		s.writeStructural(w, r, err)
		return
	}

	resp := RegionsResponseDTO{
		RunID:         found.RunID,
		Page:          page,
		Strategy:      found.Strategy,
		Illustrations: []RegionDTO{},
		Drawings:      []RegionDTO{},
	}
	for _, reg := range found.Illustrations {
		dto, err := regionDTO(reg, withImages)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "encode region", err.Error())
			return
		}
		resp.Illustrations = append(resp.Illustrations, dto)
	}
	for _, reg := range found.Drawings {
		dto, err := regionDTO(reg, withImages)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "encode region", err.Error())
			return
		}
		resp.Drawings = append(resp.Drawings, dto)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func regionDTO(reg extract.Region, withImage bool) (RegionDTO, error) {
	b := reg.Bounds
	dto := RegionDTO{
		Kind:     string(reg.Kind),
		Position: string(reg.Position),
		Bounds:   [4]int{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y},
	}
	if withImage {
		data, err := raster.EncodePNG(reg.Image)
		if err != nil {
			return dto, err
		}
		dto.PNG = base64.StdEncoding.EncodeToString(data)
	}
	return dto, nil
}

// prices handles POST /v1/prices?from=€&multiplier=2&to=$ with the PDF as
// the request body and answers with the rewritten PDF.
func (s *server) prices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := q.Get("from")
	if from == "" {
		s.writeError(w, http.StatusBadRequest, "from is required", "")
		return
	}
	multiplier := 1.0
	if v := q.Get("multiplier"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil || m <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid multiplier", v)
			return
		}
		multiplier = m
	}

	data, ok := s.readBody(w, r)
	if !ok {
		return
	}

	out, report, err := s.rewriter.RewriteWithReport(data, from, multiplier, q.Get("to"))
	if err != nil {
		s.writeStructural(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("X-Prices-Rewritten", strconv.Itoa(report.Total()))
	w.Header().Set("X-Prices-Skipped", strconv.Itoa(report.Skipped))
	w.Write(out)
}

func (s *server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "document too large", fmt.Sprintf("limit is %d bytes", s.maxUpload))
			return nil, false
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return nil, false
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "request body is empty", "")
		return nil, false
	}
	return data, true
}

// writeStructural maps library failures to status codes.
func (s *server) writeStructural(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pdf.ErrOpen):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pdf.ErrPageRange):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("request failed")
	}
	s.writeError(w, status, http.StatusText(status), err.Error())
}

func (s *server) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
