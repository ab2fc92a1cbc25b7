package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/playback-core/internal/catalog"
)

// handleCatalog lists the installed cores, the active one and every
// supported extension.
func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	cores := s.catalog.Cores()
	resp := map[string]any{
		"cores":              cores,
		"count":              len(cores),
		"extensions":         s.catalog.AllExtensions(),
		"camera_requested":   s.catalog.CameraRequested(),
		"location_requested": s.catalog.LocationRequested(),
	}
	if core, ok := s.catalog.Active(); ok {
		resp["active_core"] = core.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetCore returns one core by name.
func (s *Server) handleGetCore(w http.ResponseWriter, r *http.Request) {
	core, err := s.catalog.Find(chi.URLParam(r, "name"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, core)
}

// handleCoreFirmware lists the firmware of a core missing from the system dir.
func (s *Server) handleCoreFirmware(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	missing, err := s.catalog.MissingFirmware(name)
	if err != nil {
		if !errors.Is(err, catalog.ErrCoreNotFound) {
			s.logger.Error("checking firmware failed", "core", name, "error", err)
		}
		writeCatalogError(w, err)
		return
	}

	required := 0
	for _, fw := range missing {
		if !fw.Optional {
			required++
		}
	}
	if missing == nil {
		missing = []catalog.Firmware{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"core":             name,
		"system_dir":       s.catalog.SystemDir(),
		"missing":          missing,
		"required_missing": required,
	})
}

// handleCoresForFile lists the cores that can load ?path=.
func (s *Server) handleCoresForFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeBadRequest(w, "path query parameter is required")
		return
	}
	cores := s.catalog.CoresForFile(path)
	if cores == nil {
		cores = []catalog.Core{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":  path,
		"cores": cores,
		"count": len(cores),
	})
}

func writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrCoreNotFound) {
		writeNotFound(w, err.Error())
		return
	}
	writeInternalError(w, "catalog error")
}
