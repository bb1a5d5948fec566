package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gridpoint-io/gridpoint-core/internal/history"
	"github.com/gridpoint-io/gridpoint-core/internal/infrastructure/mqtt"
	"github.com/gridpoint-io/gridpoint-core/internal/migration"
)

// exportRequest is the body for POST /tenants/{tenantID}/migration/export.
type exportRequest struct {
	Metadata  migration.Metadata  `json:"metadata"`
	Selection migration.Selection `json:"selection"`
}

// importRequest is the body for POST /tenants/{tenantID}/migration/import.
type importRequest struct {
	Package *migration.Package      `json:"package"`
	Options migration.ImportOptions `json:"options"`
}

// handleExport bundles the selected tenant resources into a package
// document and returns it.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	pkg, err := s.engine.Export(r.Context(), tenantID, req.Metadata, req.Selection)
	if err != nil {
		if errors.Is(err, migration.ErrNameRequired) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("export failed", "tenant_id", tenantID, "error", err)
		writeInternalError(w, "export failed")
		return
	}

	if s.mqtt != nil {
		s.mqtt.PublishExported(mqtt.ExportedEvent{
			TenantID:    tenantID,
			PackageID:   pkg.Metadata.ID,
			PackageName: pkg.Metadata.Name,
			Counts: map[string]int{
				migration.CollectionSchemas:     len(pkg.Resources.Schemas),
				migration.CollectionDeviceTypes: len(pkg.Resources.DeviceTypes),
				migration.CollectionDashboards:  len(pkg.Resources.Dashboards),
				migration.CollectionAlertRules:  len(pkg.Resources.AlertRules),
				migration.CollectionAssets:      len(pkg.Resources.Assets),
			},
		})
	}

	s.recordHistory(r, &history.Entry{
		TenantID:    tenantID,
		Operation:   history.OperationExport,
		PackageName: pkg.Metadata.Name,
		Success:     true,
		Details: map[string]any{
			"package_id": pkg.Metadata.ID,
			"schemas":    len(pkg.Resources.Schemas),
			"assets":     len(pkg.Resources.Assets),
		},
	})

	writeJSON(w, http.StatusOK, pkg)
}

// handleValidate checks a package document for structural and referential
// integrity. The result carries blocking errors and non-blocking warnings.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var pkg migration.Package
	if err := json.NewDecoder(r.Body).Decode(&pkg); err != nil {
		writeBadRequest(w, "invalid package document: "+err.Error())
		return
	}

	result, err := migration.Validate(&pkg)
	if err != nil {
		writeInternalError(w, "validation failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// recordHistory persists a migration run record. Failures are logged and
// never surfaced to the caller.
func (s *Server) recordHistory(r *http.Request, entry *history.Entry) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(r.Context(), entry); err != nil {
		s.logger.Warn("failed to record migration history", "operation", entry.Operation, "error", err)
	}
}

// handleHistory lists past migration runs for a tenant, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	if s.history == nil {
		writeJSON(w, http.StatusOK, &history.ListResult{Entries: []history.Entry{}})
		return
	}

	filter := history.Filter{
		Operation: r.URL.Query().Get("operation"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "invalid limit: "+v)
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "invalid offset: "+v)
			return
		}
		filter.Offset = n
	}

	result, err := s.history.List(r.Context(), tenantID, filter)
	if err != nil {
		s.logger.Error("failed to list migration history", "tenant_id", tenantID, "error", err)
		writeInternalError(w, "failed to list migration history")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePreview reports what an import would do without writing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var pkg migration.Package
	if err := json.NewDecoder(r.Body).Decode(&pkg); err != nil {
		writeBadRequest(w, "invalid package document: "+err.Error())
		return
	}

	result, err := s.engine.Preview(r.Context(), tenantID, &pkg)
	if err != nil {
		s.logger.Error("preview failed", "tenant_id", tenantID, "error", err)
		writeInternalError(w, "preview failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleImport writes a package's resources into the target tenant.
//
// An invalid package is rejected with 422 before anything is written.
// Per-resource failures do not fail the request: they are reported in the
// result body with success=false, alongside everything that did import.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Package == nil {
		writeBadRequest(w, "package is required")
		return
	}

	result, err := s.engine.Import(r.Context(), tenantID, req.Package, req.Options)
	if err != nil {
		switch {
		case errors.Is(err, migration.ErrPackageInvalid):
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		case errors.Is(err, migration.ErrInvalidPolicy):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("import failed", "tenant_id", tenantID, "error", err)
			writeInternalError(w, "import failed")
		}
		return
	}

	if s.mqtt != nil {
		s.mqtt.PublishImported(mqtt.ImportedEvent{
			TenantID:    tenantID,
			PackageName: req.Package.Metadata.Name,
			Success:     result.Success,
			Imported:    result.Imported,
			Failed:      len(result.Errors),
		})
	}

	s.recordHistory(r, &history.Entry{
		TenantID:    tenantID,
		Operation:   history.OperationImport,
		PackageName: req.Package.Metadata.Name,
		Success:     result.Success,
		Details: map[string]any{
			"imported": result.Imported,
			"skipped":  result.Skipped,
			"failed":   len(result.Errors),
			"policy":   string(req.Options.Policy),
		},
	})

	writeJSON(w, http.StatusOK, result)
}
