package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/lendledger/internal/adapter/http/dto"
	"github.com/iho/lendledger/internal/directory"
	"github.com/iho/lendledger/internal/domain"
)

const testAdmin = domain.Principal("root")

func TestDirectoryHandler_RegisterAndResolve(t *testing.T) {
	handler := NewDirectoryHandler(directory.New(testAdmin))

	req := authRequest(t, http.MethodPost, "/directory/names", testAdmin, domain.RoleAdmin,
		dto.RegisterNameRequest{Name: "gateway", Principal: "lendledger-gateway"}, nil)
	rec := httptest.NewRecorder()
	handler.RegisterName(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = authRequest(t, http.MethodGet, "/directory/names/gateway", testAdmin, domain.RoleAdmin, nil,
		map[string]string{"name": "gateway"})
	rec = httptest.NewRecorder()
	handler.Resolve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ResolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "gateway" || resp.Principal != "lendledger-gateway" {
		t.Fatalf("unexpected resolution: %+v", resp)
	}
}

func TestDirectoryHandler_RegisterNotAdmin(t *testing.T) {
	handler := NewDirectoryHandler(directory.New(testAdmin))

	req := authRequest(t, http.MethodPost, "/directory/names", testLender, domain.RoleUser,
		dto.RegisterNameRequest{Name: "gateway", Principal: "lendledger-gateway"}, nil)
	rec := httptest.NewRecorder()
	handler.RegisterName(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDirectoryHandler_AuthorizeReader(t *testing.T) {
	dir := directory.New(testAdmin)
	handler := NewDirectoryHandler(dir)

	req := authRequest(t, http.MethodPost, "/directory/names", testAdmin, domain.RoleAdmin,
		dto.RegisterNameRequest{Name: "operator", Principal: "lendledger-operator"}, nil)
	rec := httptest.NewRecorder()
	handler.RegisterName(rec, req)

	req = authRequest(t, http.MethodGet, "/directory/names/operator", testLender, domain.RoleUser, nil,
		map[string]string{"name": "operator"})
	rec = httptest.NewRecorder()
	handler.Resolve(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("unauthorized reader: expected 403, got %d", rec.Code)
	}

	req = authRequest(t, http.MethodPost, "/directory/readers", testAdmin, domain.RoleAdmin,
		dto.AuthorizeReaderRequest{Reader: "alice"}, nil)
	rec = httptest.NewRecorder()
	handler.AuthorizeReader(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("authorize: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = authRequest(t, http.MethodGet, "/directory/names/operator", testLender, domain.RoleUser, nil,
		map[string]string{"name": "operator"})
	rec = httptest.NewRecorder()
	handler.Resolve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("authorized reader: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDirectoryHandler_ResolveUnknownName(t *testing.T) {
	handler := NewDirectoryHandler(directory.New(testAdmin))

	req := authRequest(t, http.MethodGet, "/directory/names/nobody", testAdmin, domain.RoleAdmin, nil,
		map[string]string{"name": "nobody"})
	rec := httptest.NewRecorder()
	handler.Resolve(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
