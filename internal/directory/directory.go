// Package directory maps readable service names onto principals. The gateway
// resolves its trusted identities here once at bootstrap; nothing consults the
// directory on the hot path.
package directory

import (
	"fmt"
	"sync"

	"github.com/iho/lendledger/internal/domain"
)

// Directory is a guarded name registry. Registration is restricted to the
// admin principal; resolution is restricted to readers the admin authorized.
type Directory struct {
	mu      sync.RWMutex
	admin   domain.Principal
	readers map[domain.Principal]bool
	names   map[string]domain.Principal
}

// New creates a directory administered by admin. The admin can always read.
func New(admin domain.Principal) *Directory {
	return &Directory{
		admin:   admin,
		readers: map[domain.Principal]bool{admin: true},
		names:   make(map[string]domain.Principal),
	}
}

// Register binds name to principal. Only the admin may register names;
// re-registering a name overwrites the previous binding.
func (d *Directory) Register(caller domain.Principal, name string, principal domain.Principal) error {
	if caller != d.admin {
		return fmt.Errorf("%w: only the directory admin can register names", domain.ErrUnauthorized)
	}

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidPrincipal)
	}

	if err := domain.ValidatePrincipal(principal); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.names[name] = principal
	return nil
}

// AuthorizeReader grants caller-independent read access to reader. Admin only.
func (d *Directory) AuthorizeReader(caller, reader domain.Principal) error {
	if caller != d.admin {
		return fmt.Errorf("%w: only the directory admin can authorize readers", domain.ErrUnauthorized)
	}

	if err := domain.ValidatePrincipal(reader); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.readers[reader] = true
	return nil
}

// Resolve returns the principal bound to name. Only authorized readers may
// resolve names.
func (d *Directory) Resolve(caller domain.Principal, name string) (domain.Principal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.readers[caller] {
		return "", fmt.Errorf("%w: caller is not an authorized directory reader", domain.ErrUnauthorized)
	}

	principal, ok := d.names[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNameNotFound, name)
	}

	return principal, nil
}
