package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/dgallion1/resumedit/internal/lines"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"word", 1},
		{"a b c", 3},
	}
	for _, tc := range tests {
		if got := EstimateTokens(tc.in); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestBatches_CutsAtBlankLine(t *testing.T) {
	ls := numbered([]string{"a", "", "b", "c"})
	got := Batches(ls, 7)
	want := [][]int{{1}, {2, 3}, {4}}
	if len(got) != len(want) {
		t.Fatalf("expected %d batches, got %d", len(want), len(got))
	}
	for i, b := range got {
		if len(b) != len(want[i]) {
			t.Fatalf("batch %d: %d lines, want %d", i, len(b), len(want[i]))
		}
		for j, l := range b {
			if l.LineNumber != want[i][j] {
				t.Errorf("batch %d line %d = %d, want %d", i, j, l.LineNumber, want[i][j])
			}
		}
	}
}

func TestBatches_KeepsEveryLine(t *testing.T) {
	var contents []string
	for i := 0; i < 50; i++ {
		if i%4 == 3 {
			contents = append(contents, "")
			continue
		}
		contents = append(contents, "some words on a resume line")
	}
	ls := numbered(contents)
	n := 0
	for _, b := range Batches(ls, 30) {
		if len(b) == 0 {
			t.Fatal("empty batch")
		}
		for _, l := range b {
			n++
			if l.LineNumber != n {
				t.Fatalf("expected line %d, got %d", n, l.LineNumber)
			}
		}
	}
	if n != len(ls) {
		t.Errorf("expected %d lines across batches, got %d", len(ls), n)
	}
}

func TestBatches_OversizedLine(t *testing.T) {
	ls := []lines.Line{{LineNumber: 1, Content: "one two three four five six seven eight"}}
	got := Batches(ls, 2)
	if len(got) != 1 || len(got[0]) != 1 {
		t.Fatalf("expected a single batch, got %v", got)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	noBackoff(t)
	perm := errors.New("bad request")
	calls := 0
	err := Retry(context.Background(), discardLogger(), func() error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) || calls != 1 {
		t.Fatalf("expected one call returning perm, got %d calls, %v", calls, err)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, discardLogger(), func() error {
		return &RetryableError{StatusCode: 503}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
