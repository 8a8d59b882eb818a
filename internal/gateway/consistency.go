package gateway

import (
	"fmt"
	"time"

	"github.com/iho/lendledger/internal/domain"
)

// ConsistencyIssue describes one violated invariant.
type ConsistencyIssue struct {
	LoanID uint64 `json:"loan_id"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// ConsistencyReport summarizes a cross-component invariant sweep.
type ConsistencyReport struct {
	CheckedAt  time.Time          `json:"checked_at"`
	Consistent bool               `json:"consistent"`
	Issues     []ConsistencyIssue `json:"issues,omitempty"`
}

// CheckConsistency verifies the cross-component invariants: every repaying
// loan's vault holds exactly its collateral amount, no vault is negative, and
// no vault references an unknown loan. Read-only.
func (g *Gateway) CheckConsistency() ConsistencyReport {
	g.mu.Lock()
	defer g.mu.Unlock()

	var issues []ConsistencyIssue

	for _, loan := range g.registry.LoansByStatus(domain.LoanStatusRepaying) {
		vault := g.ledger.VaultBalance(loan.ID)
		if !vault.Equal(loan.CollateralAmount) {
			issues = append(issues, ConsistencyIssue{
				LoanID: loan.ID,
				Kind:   "vault_mismatch",
				Detail: fmt.Sprintf("vault holds %s, loan requires %s", vault, loan.CollateralAmount),
			})
		}
	}

	for _, id := range g.ledger.VaultLoanIDs() {
		vault := g.ledger.VaultBalance(id)

		if vault.IsNegative() {
			issues = append(issues, ConsistencyIssue{
				LoanID: id,
				Kind:   "negative_vault",
				Detail: fmt.Sprintf("vault balance is %s", vault),
			})
		}

		if !g.registry.Exists(id) {
			issues = append(issues, ConsistencyIssue{
				LoanID: id,
				Kind:   "orphan_vault",
				Detail: "vault entry references a loan the registry does not know",
			})
		}
	}

	return ConsistencyReport{
		CheckedAt:  g.nowFn(),
		Consistent: len(issues) == 0,
		Issues:     issues,
	}
}
