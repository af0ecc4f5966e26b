package bucketmath

import (
	"testing"
	"testing/quick"
)

func TestStart(t *testing.T) {
	cases := []struct {
		name  string
		ts    int64
		width int64
		want  int64
	}{
		{"zero", 0, 3600, 0},
		{"inside first bucket", 3599, 3600, 0},
		{"on boundary", 3600, 3600, 3600},
		{"mid epoch", 1701386700, 3600, 1701385200},
		{"negative inside", -1, 3600, -3600},
		{"negative on boundary", -3600, 3600, -3600},
		{"negative below boundary", -3601, 3600, -7200},
		{"small width", 7, 5, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Start(tc.ts, tc.width); got != tc.want {
				t.Fatalf("Start(%d, %d) = %d, want %d", tc.ts, tc.width, got, tc.want)
			}
		})
	}
}

func TestStartAlignmentProperty(t *testing.T) {
	property := func(ts, width int64) bool {
		// Constrain the domain: positive width, timestamps far enough from
		// the int64 edges that start+width cannot overflow.
		width %= 86400
		if width < 0 {
			width = -width
		}
		width++
		ts %= int64(1) << 40

		start := Start(ts, width)
		if start%width != 0 {
			t.Logf("Start(%d, %d) = %d is not width-aligned", ts, width, start)
			return false
		}
		if start > ts || ts >= start+width {
			t.Logf("Start(%d, %d) = %d does not contain the input", ts, width, start)
			return false
		}
		return true
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 2000}); err != nil {
		t.Errorf("alignment property failed: %v", err)
	}
}

func TestCovering(t *testing.T) {
	cases := []struct {
		name       string
		start, end int64
		want       []int64
	}{
		{"single bucket", 100, 200, []int64{0}},
		{"crosses one boundary", 3500, 3700, []int64{0, 3600}},
		{"end on boundary pulls extra bucket", 100, 3600, []int64{0, 3600}},
		{"start equals end", 50, 50, []int64{0}},
		{"start after end", 200, 100, nil},
		{"negative range", -100, 100, []int64{-3600, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Covering(tc.start, tc.end, 3600)
			if len(got) != len(tc.want) {
				t.Fatalf("Covering(%d, %d) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Covering(%d, %d) = %v, want %v", tc.start, tc.end, got, tc.want)
				}
			}
		})
	}
}

func TestCoveringSpansRangeProperty(t *testing.T) {
	// Every timestamp inside (start, end] must land in one of the covering
	// buckets under the left-open right-closed membership rule.
	property := func(start, span, offset int64) bool {
		const width = int64(3600)
		start %= int64(1) << 32
		span %= width
		if span < 0 {
			span += width
		}
		if span == 0 {
			return true
		}
		end := start + span
		off := offset % span
		if off < 0 {
			off += span
		}
		ts := start + 1 + off

		for _, s := range Covering(start, end, width) {
			if ts > s && ts <= s+width {
				return true
			}
		}
		t.Logf("timestamp %d in (%d, %d] not covered", ts, start, end)
		return false
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 2000}); err != nil {
		t.Errorf("covering property failed: %v", err)
	}
}
