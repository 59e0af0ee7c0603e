package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"custodia.org/internal/auth"
	"custodia.org/internal/blob"
	"custodia.org/internal/custody"
)

type createRequestPayload struct {
	AssetID     string   `json:"asset_id"`
	DocumentIDs []string `json:"document_ids"`
}

type transitionPayload struct {
	Status string `json:"status"`
}

func (a *API) handleAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	assets, err := a.custody.ListAssets(r.Context())
	if err != nil {
		handleCustodyError(w, r, err)
		return
	}
	if assets == nil {
		assets = []custody.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

func (a *API) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.uploadDocument(w, r)
	case http.MethodGet:
		a.listDocuments(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// uploadDocument accepts one multipart file per call plus a caller-supplied
// type label. No content validation is performed; collision avoidance is
// delegated to the generated storage key.
func (a *API) uploadDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	docType := strings.TrimSpace(r.FormValue("type"))
	if docType == "" {
		writeError(w, r, http.StatusBadRequest, "type is required")
		return
	}

	key := blob.NewStorageKey()
	contentType := header.Header.Get("Content-Type")
	if err := a.blobs.Put(r.Context(), key, contentType, file); err != nil {
		writeError(w, r, http.StatusInternalServerError, "document storage failed")
		return
	}

	doc, err := a.custody.CreateDocument(r.Context(), identity.UserID, docType, key)
	if err != nil {
		handleCustodyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) listDocuments(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	docs, err := a.custody.ListDocumentsByOwner(r.Context(), identity.UserID)
	if err != nil {
		handleCustodyError(w, r, err)
		return
	}
	if docs == nil {
		docs = []custody.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleRequests files a release request. The asset and document ids are
// opaque references and are not validated for existence.
func (a *API) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createRequestPayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	assetID := strings.TrimSpace(req.AssetID)
	if assetID == "" {
		writeError(w, r, http.StatusBadRequest, "asset_id is required")
		return
	}

	created, err := a.custody.CreateRequest(r.Context(), identity.UserID, assetID, req.DocumentIDs)
	if err != nil {
		handleCustodyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleAdminRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	details, err := a.custody.ListRequests(r.Context())
	if err != nil {
		handleCustodyError(w, r, err)
		return
	}
	if details == nil {
		details = []custody.RequestDetail{}
	}
	writeJSON(w, http.StatusOK, details)
}

func (a *API) handleAdminRequestResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/requests/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req transitionPayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := strings.TrimSpace(strings.ToLower(req.Status))
	if status == "" {
		writeError(w, r, http.StatusBadRequest, "status is required")
		return
	}

	updated, err := a.custody.TransitionRequest(r.Context(), id, status, identity.UserID)
	if err != nil {
		handleCustodyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func handleCustodyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, custody.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, custody.ErrAlreadyProcessed):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
