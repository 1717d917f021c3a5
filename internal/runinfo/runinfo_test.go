package runinfo

import "testing"

func TestNewProducesDistinctIDs(t *testing.T) {
	a := New()
	b := New()
	if a.RunID == b.RunID {
		t.Fatal("two calls to New() produced the same run id")
	}
}

func TestStringIsNonEmpty(t *testing.T) {
	r := New()
	if r.String() == "" {
		t.Fatal("String() returned empty")
	}
}
