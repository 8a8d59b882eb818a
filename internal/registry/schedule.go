package registry

import (
	"github.com/google/btree"
)

const defaultTreeDegree = 2

// PaymentRecord tracks one repayment cycle of a loan. A loan has at most one
// unpaid record at a time; resolved cycles are marked paid and kept.
type PaymentRecord struct {
	Deadline int64
	LoanID   uint64
	Paid     bool
}

var _ btree.LessFunc[*PaymentRecord] = (*PaymentRecord).Less

// Less orders records by deadline, breaking ties by loan id.
func (r *PaymentRecord) Less(than *PaymentRecord) bool {
	if r.Deadline != than.Deadline {
		return r.Deadline < than.Deadline
	}
	return r.LoanID < than.LoanID
}

// schedule is the deadline-ordered index of repayment cycles. It answers
// "which loans are overdue as of deadline D" without scanning all loans.
type schedule struct {
	tree *btree.BTreeG[*PaymentRecord]
}

func newSchedule() *schedule {
	return &schedule{
		tree: btree.NewG(defaultTreeDegree, (*PaymentRecord).Less),
	}
}

// Append records a new unpaid cycle for the loan at deadline.
func (s *schedule) Append(loanID uint64, deadline int64) {
	s.tree.ReplaceOrInsert(&PaymentRecord{
		Deadline: deadline,
		LoanID:   loanID,
	})
}

// MarkPaid resolves the loan's cycle at deadline. Unknown records are ignored.
func (s *schedule) MarkPaid(loanID uint64, deadline int64) {
	rec, ok := s.tree.Get(&PaymentRecord{Deadline: deadline, LoanID: loanID})
	if ok {
		rec.Paid = true
	}
}

// UnpaidDueBy returns the ids of loans with an unpaid cycle due at or before
// deadline, in deadline order.
func (s *schedule) UnpaidDueBy(deadline int64) []uint64 {
	var ids []uint64
	s.tree.Ascend(func(rec *PaymentRecord) bool {
		if rec.Deadline > deadline {
			return false
		}
		if !rec.Paid {
			ids = append(ids, rec.LoanID)
		}
		return true
	})
	return ids
}

// Len returns the total number of records, paid and unpaid.
func (s *schedule) Len() int {
	return s.tree.Len()
}
