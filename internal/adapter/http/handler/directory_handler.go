package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/lendledger/internal/adapter/http/dto"
	"github.com/iho/lendledger/internal/directory"
	"github.com/iho/lendledger/internal/domain"
)

// DirectoryHandler handles the admin-managed name directory.
type DirectoryHandler struct {
	dir *directory.Directory
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(dir *directory.Directory) *DirectoryHandler {
	return &DirectoryHandler{dir: dir}
}

// RegisterName binds a readable name to a principal. Admin only.
func (h *DirectoryHandler) RegisterName(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	var req dto.RegisterNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.dir.Register(caller, req.Name, domain.Principal(req.Principal)); err != nil {
		writeError(w, mapDomainError(err), "failed to register name", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.ResolveResponse{
		Name:      req.Name,
		Principal: domain.Principal(req.Principal),
	})
}

// AuthorizeReader grants directory read access to a principal. Admin only.
func (h *DirectoryHandler) AuthorizeReader(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	var req dto.AuthorizeReaderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.dir.AuthorizeReader(caller, domain.Principal(req.Reader)); err != nil {
		writeError(w, mapDomainError(err), "failed to authorize reader", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "authorized",
		"reader": req.Reader,
	})
}

// Resolve looks up the principal bound to a name. Authorized readers only.
func (h *DirectoryHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	name := chi.URLParam(r, "name")

	principal, err := h.dir.Resolve(caller, name)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to resolve name", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ResolveResponse{
		Name:      name,
		Principal: principal,
	})
}
