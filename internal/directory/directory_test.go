package directory

import (
	"errors"
	"testing"

	"github.com/iho/lendledger/internal/domain"
)

func TestDirectory_Register(t *testing.T) {
	tests := []struct {
		name        string
		caller      domain.Principal
		bindName    string
		principal   domain.Principal
		expectedErr error
	}{
		{
			name:      "admin registers name",
			caller:    "admin",
			bindName:  "gateway",
			principal: "gateway-principal",
		},
		{
			name:        "non-admin rejected",
			caller:      "intruder",
			bindName:    "gateway",
			principal:   "gateway-principal",
			expectedErr: domain.ErrUnauthorized,
		},
		{
			name:        "empty name rejected",
			caller:      "admin",
			bindName:    "",
			principal:   "gateway-principal",
			expectedErr: domain.ErrInvalidPrincipal,
		},
		{
			name:        "empty principal rejected",
			caller:      "admin",
			bindName:    "gateway",
			principal:   "",
			expectedErr: domain.ErrInvalidPrincipal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New("admin")

			err := d.Register(tt.caller, tt.bindName, tt.principal)

			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Errorf("expected %v, got %v", tt.expectedErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := d.Resolve("admin", tt.bindName)
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}

			if got != tt.principal {
				t.Errorf("expected %s, got %s", tt.principal, got)
			}
		})
	}
}

func TestDirectory_Resolve(t *testing.T) {
	d := New("admin")

	if err := d.Register("admin", "operator", "ops-principal"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	t.Run("unauthorized reader rejected", func(t *testing.T) {
		_, err := d.Resolve("stranger", "operator")
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("authorized reader resolves", func(t *testing.T) {
		if err := d.AuthorizeReader("admin", "gateway-principal"); err != nil {
			t.Fatalf("authorize failed: %v", err)
		}

		got, err := d.Resolve("gateway-principal", "operator")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}

		if got != "ops-principal" {
			t.Errorf("expected ops-principal, got %s", got)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := d.Resolve("admin", "missing")
		if !errors.Is(err, domain.ErrNameNotFound) {
			t.Errorf("expected ErrNameNotFound, got %v", err)
		}
	})

	t.Run("non-admin cannot authorize readers", func(t *testing.T) {
		err := d.AuthorizeReader("stranger", "other")
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestDirectory_RegisterOverwrites(t *testing.T) {
	d := New("admin")

	if err := d.Register("admin", "gateway", "old"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := d.Register("admin", "gateway", "new"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	got, err := d.Resolve("admin", "gateway")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if got != "new" {
		t.Errorf("expected new, got %s", got)
	}
}
