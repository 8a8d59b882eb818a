package domain

// Principal identifies a party on the ledger: a lender, a borrower, or an
// operational identity. Values are opaque; the directory maps readable names
// onto them at bootstrap.
type Principal string

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return p == ""
}

func (p Principal) String() string {
	return string(p)
}
