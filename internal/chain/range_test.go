package chain

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestPendingRange(t *testing.T) {
	cases := []struct {
		name        string
		cursor      uint64
		head        uint64
		maxLag      uint64
		want        BlockRange
		wantSkipped uint64
		wantOK      bool
	}{
		{name: "no new blocks", cursor: 10, head: 10, maxLag: 5},
		{name: "head behind cursor", cursor: 10, head: 8, maxLag: 5},
		{name: "within lag", cursor: 10, head: 13, maxLag: 5, want: BlockRange{From: 11, To: 13}, wantOK: true},
		{name: "exactly lag", cursor: 10, head: 15, maxLag: 5, want: BlockRange{From: 11, To: 15}, wantOK: true},
		{name: "beyond lag", cursor: 10, head: 30, maxLag: 5, want: BlockRange{From: 26, To: 30}, wantSkipped: 15, wantOK: true},
		{name: "unbounded lag", cursor: 10, head: 30, want: BlockRange{From: 11, To: 30}, wantOK: true},
	}

	for _, tc := range cases {
		got, skipped, ok := PendingRange(tc.cursor, tc.head, tc.maxLag)
		if ok != tc.wantOK || got != tc.want || skipped != tc.wantSkipped {
			t.Fatalf("%s: got %+v skipped=%d ok=%v, want %+v skipped=%d ok=%v",
				tc.name, got, skipped, ok, tc.want, tc.wantSkipped, tc.wantOK)
		}
	}
}
