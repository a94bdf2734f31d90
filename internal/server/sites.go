package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/raysh454/sitepulse/internal/app"
	"github.com/raysh454/sitepulse/internal/export"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/registry"
	"github.com/raysh454/sitepulse/internal/tracker"
)

// storeError maps store errors onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrSiteNotFound),
		errors.Is(err, app.ErrSnapshotNotFound),
		errors.Is(err, tracker.ErrVersionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tracker.ErrSiteMismatch):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(op, logging.Field{Key: "error", Value: err.Error()})
	} else {
		s.logger.Warn(op, logging.Field{Key: "error", Value: err.Error()})
	}
	writeError(w, status, err.Error())
}

// handleListSites godoc
// @Summary List stored sites
// @Description Most recently audited first.
// @Tags sites
// @Produce json
// @Success 200 {array} model.SiteSummary
// @Router /sites [get]
func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.app.Store.List(r.Context())
	if err != nil {
		s.storeError(w, "listing sites", err)
		return
	}
	s.logger.Info("listed sites", logging.Field{Key: "count", Value: len(sites)})
	writeJSON(w, http.StatusOK, sites)
}

// handleGetSite godoc
// @Summary Get a site and its latest audit
// @Tags sites
// @Produce json
// @Param siteID path string true "Site ID"
// @Success 200 {object} SiteDetailResponse
// @Failure 404 {object} ErrorResponse
// @Router /sites/{siteID} [get]
func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	site, err := s.app.Store.Site(r.Context(), siteID)
	if err != nil {
		s.storeError(w, "getting site", err)
		return
	}
	resp := SiteDetailResponse{Site: site.Summary()}
	latest, err := s.app.Store.Load(r.Context(), siteID)
	switch {
	case err == nil:
		resp.Latest = latest
	case !errors.Is(err, app.ErrSnapshotNotFound):
		s.storeError(w, "loading latest audit", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteSite godoc
// @Summary Delete a site and its history
// @Tags sites
// @Param siteID path string true "Site ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sites/{siteID} [delete]
func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	if err := s.app.Store.Delete(r.Context(), siteID); err != nil {
		s.storeError(w, "deleting site", err)
		return
	}
	s.logger.Info("deleted site", logging.Field{Key: "site_id", Value: siteID})
	w.WriteHeader(http.StatusNoContent)
}

// handleSiteHistory godoc
// @Summary List stored audits of a site
// @Description Newest first.
// @Tags sites
// @Produce json
// @Param siteID path string true "Site ID"
// @Param limit query int false "Maximum versions (default 10)"
// @Success 200 {array} tracker.Version
// @Failure 404 {object} ErrorResponse
// @Router /sites/{siteID}/history [get]
func (s *Server) handleSiteHistory(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	limit := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	versions, err := s.app.Store.History(r.Context(), siteID, limit)
	if err != nil {
		s.storeError(w, "listing history", err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

// handleSitePages godoc
// @Summary Page inventory of a site
// @Description Pages seen across the audits of a site with the outcome of their last audit.
// @Tags sites
// @Produce json
// @Param siteID path string true "Site ID"
// @Param status query string false "ok, failed or missing"
// @Param limit query int false "Maximum pages"
// @Success 200 {array} indexer.Page
// @Failure 404 {object} ErrorResponse
// @Router /sites/{siteID}/pages [get]
func (s *Server) handleSitePages(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	limit := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	pages, err := s.app.Store.Pages(r.Context(), siteID, r.URL.Query().Get("status"), limit)
	if err != nil {
		s.storeError(w, "listing pages", err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

// handleSiteDiff godoc
// @Summary Compare two audits of a site
// @Description Without parameters compares the latest audit with the one before it.
// @Tags sites
// @Produce json
// @Param siteID path string true "Site ID"
// @Param base query string false "Base version ID"
// @Param head query string false "Head version ID"
// @Success 200 {object} tracker.DiffResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sites/{siteID}/diff [get]
func (s *Server) handleSiteDiff(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	q := r.URL.Query()
	if _, err := s.app.Store.Site(r.Context(), siteID); err != nil {
		s.storeError(w, "diffing site", err)
		return
	}
	diff, err := s.app.Store.Diff(r.Context(), siteID, q.Get("base"), q.Get("head"))
	if err != nil {
		s.storeError(w, "diffing site", err)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// handleGetVersion godoc
// @Summary Get one stored audit
// @Tags sites
// @Produce json
// @Param versionID path string true "Version ID"
// @Success 200 {object} model.AuditSnapshot
// @Failure 404 {object} ErrorResponse
// @Router /versions/{versionID} [get]
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Store.Version(r.Context(), chi.URLParam(r, "versionID"))
	if err != nil {
		s.storeError(w, "loading version", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleExportCSV godoc
// @Summary Download the latest audit as CSV
// @Tags export
// @Produce text/csv
// @Param siteID path string true "Site ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /sites/{siteID}/export.csv [get]
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.exportLatest(w, r, "csv", export.ContentTypeCSV, export.WriteCSV)
}

// handleExportXLSX godoc
// @Summary Download the latest audit as an Excel workbook
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param siteID path string true "Site ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /sites/{siteID}/export.xlsx [get]
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.exportLatest(w, r, "xlsx", export.ContentTypeXLSX, export.WriteXLSX)
}

func (s *Server) exportLatest(w http.ResponseWriter, r *http.Request, ext, contentType string,
	write func(w io.Writer, snap *model.AuditSnapshot) error) {
	siteID := chi.URLParam(r, "siteID")
	snap, err := s.app.Store.Load(r.Context(), siteID)
	if err != nil {
		s.storeError(w, "exporting site", err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, snap); err != nil {
		s.storeError(w, "exporting site", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(snap, ext)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	s.logger.Info("exported site",
		logging.Field{Key: "site_id", Value: siteID},
		logging.Field{Key: "format", Value: ext})
}
