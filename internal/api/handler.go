// Package api exposes the service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"rag-web-qa/internal/domain"
	"rag-web-qa/internal/loader"
	"rag-web-qa/internal/logging"
	"rag-web-qa/internal/metrics"
	"rag-web-qa/internal/service"
)

// QAService is the part of the service the HTTP layer needs.
type QAService interface {
	Ingest(ctx context.Context, url string) (service.IngestResult, error)
	AskWithSources(ctx context.Context, query string) (domain.Answer, error)
	Clear(ctx context.Context) error
	Status(ctx context.Context) (service.Status, error)
}

type IngestRequest struct {
	URL string `json:"url"`
}

type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Chunks     int    `json:"chunks"`
	Summary    string `json:"summary"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Title   string `json:"title,omitempty"`
	Source  string `json:"source,omitempty"`
	Chunks  int    `json:"chunks"`
	Indexed int    `json:"indexed"`
}

type AskRequest struct {
	Query string `json:"query"`
}

type Source struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source,omitempty"`
}

type AskResponse struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type Handler struct {
	svc     QAService
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewHandler creates the HTTP handler. m may be nil, which disables /metrics.
func NewHandler(svc QAService, logger logging.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = logging.NewNoop()
	}
	return &Handler{svc: svc, logger: logger, metrics: m}
}

func (h *Handler) Register(e *echo.Echo) {
	if h.metrics != nil {
		e.Use(h.countRequests)
		e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}
	e.GET("/health", h.health)
	e.POST("/ingest", h.ingest)
	e.POST("/ask", h.ask)
	e.POST("/clear", h.clear)
}

func (h *Handler) health(c echo.Context) error {
	st, err := h.svc.Status(c.Request().Context())
	if err != nil {
		h.logger.Warn("index status failed", logging.Fields{"error": err})
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Ready: st.Ready, Title: st.Title, Source: st.Source, Chunks: st.Chunks})
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Ready:   st.Ready,
		Title:   st.Title,
		Source:  st.Source,
		Chunks:  st.Chunks,
		Indexed: st.Indexed,
	})
}

func (h *Handler) ingest(c echo.Context) error {
	var in IngestRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	in.URL = strings.TrimSpace(in.URL)
	if in.URL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "url is required"})
	}
	res, err := h.svc.Ingest(c.Request().Context(), in.URL)
	if err != nil {
		h.logger.Warn("ingest failed", logging.Fields{"url": in.URL, "error": err})
		return c.JSON(ingestStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, IngestResponse{
		DocumentID: res.DocumentID,
		Title:      res.Title,
		Chunks:     res.Chunks,
		Summary:    res.Summary,
	})
}

func ingestStatus(err error) int {
	switch {
	case errors.Is(err, loader.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) ask(c echo.Context) error {
	var in AskRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "query is required"})
	}
	ans, err := h.svc.AskWithSources(c.Request().Context(), in.Query)
	if err != nil {
		h.logger.Error("ask failed", logging.Fields{"error": err})
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	out := AskResponse{Query: in.Query, Answer: ans.Result, Sources: make([]Source, 0, len(ans.SourceDocuments))}
	for _, d := range ans.SourceDocuments {
		out.Sources = append(out.Sources, Source{Text: d.Chunk.Text, Score: d.Score, Source: d.Chunk.Source()})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) clear(c echo.Context) error {
	if err := h.svc.Clear(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"cleared": true})
}

func (h *Handler) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		h.metrics.RequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(c.Response().Status)).Inc()
		return nil
	}
}
