package registry

import (
	"testing"
)

func TestSchedule_UnpaidDueBy(t *testing.T) {
	s := newSchedule()

	s.Append(1, 100)
	s.Append(2, 200)
	s.Append(3, 300)

	tests := []struct {
		name     string
		deadline int64
		expected []uint64
	}{
		{name: "before first", deadline: 99, expected: nil},
		{name: "exactly first", deadline: 100, expected: []uint64{1}},
		{name: "mid range", deadline: 250, expected: []uint64{1, 2}},
		{name: "all due", deadline: 1000, expected: []uint64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.UnpaidDueBy(tt.deadline)

			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}

			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestSchedule_MarkPaid(t *testing.T) {
	s := newSchedule()

	s.Append(1, 100)
	s.Append(2, 100)

	s.MarkPaid(1, 100)

	got := s.UnpaidDueBy(100)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("expected [2], got %v", got)
	}

	// paid records are kept, not deleted
	if s.Len() != 2 {
		t.Errorf("expected 2 records retained, got %d", s.Len())
	}
}

func TestSchedule_MarkPaidUnknownRecord(t *testing.T) {
	s := newSchedule()

	s.Append(1, 100)

	// wrong deadline leaves the real record untouched
	s.MarkPaid(1, 999)

	got := s.UnpaidDueBy(100)
	if len(got) != 1 {
		t.Errorf("expected record still unpaid, got %v", got)
	}
}

func TestSchedule_SameDeadlineOrderedByLoanID(t *testing.T) {
	s := newSchedule()

	s.Append(9, 100)
	s.Append(3, 100)
	s.Append(5, 100)

	got := s.UnpaidDueBy(100)
	if len(got) != 3 || got[0] != 3 || got[1] != 5 || got[2] != 9 {
		t.Errorf("expected [3 5 9], got %v", got)
	}
}

func TestSchedule_SuccessiveCycles(t *testing.T) {
	s := newSchedule()

	s.Append(1, 100)
	s.MarkPaid(1, 100)
	s.Append(1, 200)

	if got := s.UnpaidDueBy(100); len(got) != 0 {
		t.Errorf("expected resolved cycle to drop out, got %v", got)
	}

	got := s.UnpaidDueBy(200)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected [1], got %v", got)
	}
}
