package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gartstein/jobscraper/internal/ingest/dispatcher"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxResultBytes bounds an uploaded ScrapingResult.
const maxResultBytes = 16 << 20

// IngestController is the read side of the engine served over HTTP.
type IngestController interface {
	GetCompanyBySourceID(ctx context.Context, sourceCompanyID string) (*models.Company, error)
	CompanyExistsByName(ctx context.Context, name string) (bool, error)
	GetListingBySourceJobID(ctx context.Context, sourceJobID string) (*models.JobListing, error)
	ListingExistsByURL(ctx context.Context, url string) (bool, error)
	ListListingsBySource(ctx context.Context, source models.Source, limit int) ([]models.JobListing, error)
	GetDetailBySourceJobID(ctx context.Context, sourceJobID string) (*models.JobDetail, error)
}

// ResultDispatcher reconciles one ScrapingResult.
type ResultDispatcher interface {
	Dispatch(ctx context.Context, result models.ScrapingResult) dispatcher.Report
}

// HTTPHandler serves result intake and lookups.
type HTTPHandler struct {
	service    IngestController
	dispatcher ResultDispatcher
	logger     *zap.Logger
}

func NewHTTPHandler(service IngestController, d ResultDispatcher, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		service:    service,
		dispatcher: d,
		logger:     logger.Named("http_handler"),
	}
}

// Register adds the API routes to mux. Identifiers travel as query
// parameters since they contain "::" and URLs.
func (h *HTTPHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method string
		path   string
		fn     runtime.HandlerFunc
	}{
		{http.MethodPost, "/api/result/scraping-result", h.receiveResult},
		{http.MethodGet, "/api/result/health", h.health},
		{http.MethodGet, "/api/companies/lookup", h.lookupCompany},
		{http.MethodGet, "/api/companies/exists", h.companyExists},
		{http.MethodGet, "/api/listings/lookup", h.lookupListing},
		{http.MethodGet, "/api/listings/exists", h.listingExists},
		{http.MethodGet, "/api/listings", h.listListings},
		{http.MethodGet, "/api/details/lookup", h.lookupDetail},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, r.fn); err != nil {
			return fmt.Errorf("register %s %s: %w", r.method, r.path, err)
		}
	}
	return nil
}

func (h *HTTPHandler) receiveResult(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var result models.ScrapingResult
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResultBytes))
	if err := dec.Decode(&result); err != nil {
		h.writeError(w, status.Error(codes.InvalidArgument, "invalid scraping result: "+err.Error()))
		return
	}

	report := h.dispatcher.Dispatch(r.Context(), result)
	h.writeJSON(w, reportHTTPStatus(&report), report)
}

func (h *HTTPHandler) health(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (h *HTTPHandler) lookupCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	company, err := h.service.GetCompanyBySourceID(r.Context(), r.URL.Query().Get("source_company_id"))
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, company)
}

func (h *HTTPHandler) companyExists(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	exists, err := h.service.CompanyExistsByName(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *HTTPHandler) lookupListing(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	listing, err := h.service.GetListingBySourceJobID(r.Context(), r.URL.Query().Get("source_job_id"))
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, listing)
}

func (h *HTTPHandler) listingExists(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	exists, err := h.service.ListingExistsByURL(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *HTTPHandler) listListings(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	source, err := models.ParseSource(q.Get("source"))
	if err != nil {
		h.writeError(w, status.Error(codes.InvalidArgument, err.Error()))
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			h.writeError(w, status.Error(codes.InvalidArgument, "limit must be a non-negative integer"))
			return
		}
	}
	listings, err := h.service.ListListingsBySource(r.Context(), source, limit)
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, listings)
}

func (h *HTTPHandler) lookupDetail(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	detail, err := h.service.GetDetailBySourceJobID(r.Context(), r.URL.Query().Get("source_job_id"))
	if err != nil {
		h.writeError(w, h.mapServiceError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	h.writeJSON(w, runtime.HTTPStatusFromCode(st.Code()), errorBody{
		Code:    int(st.Code()),
		Message: st.Message(),
	})
}
