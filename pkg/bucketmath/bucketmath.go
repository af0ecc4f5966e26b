// Package bucketmath implements the fixed-width time-bucket arithmetic the
// query processor keys its cache with. Width is always positive; callers
// validate it at configuration time.
package bucketmath

// floorDiv divides a by b rounding toward negative infinity. Go's integer
// division truncates toward zero, which would misalign negative timestamps.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Start returns floor(t/width)*width, the aligned start of the bucket the
// cache files t under.
func Start(t, width int64) int64 {
	return floorDiv(t, width) * width
}

// Covering returns the aligned starts of every bucket in
// [Start(start), Start(end)], the span that must be resident to answer a
// query over [start, end]. The bucket aligned at end is included even when
// end sits exactly on a boundary, which pulls in one bucket past the range;
// that conservative extra bucket is deliberate. start beyond end yields nil.
func Covering(start, end, width int64) []int64 {
	first := Start(start, width)
	last := Start(end, width)
	if first > last {
		return nil
	}
	starts := make([]int64, 0, (last-first)/width+1)
	for s := first; s <= last; s += width {
		starts = append(starts, s)
	}
	return starts
}
