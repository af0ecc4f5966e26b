package domain

// BucketKey identifies one cache bucket: the aligned interval (Start, End]
// with End = Start + bucket width and Start a multiple of the width.
type BucketKey struct {
	Start int64
	End   int64
}

// Contains reports whether a timestamp belongs to this bucket. Buckets are
// left-open and right-closed, the same convention as query ranges, so a
// timestamp on a boundary lands in exactly one bucket.
func (k BucketKey) Contains(ts int64) bool {
	return ts > k.Start && ts <= k.End
}

// InRange reports whether ts falls inside the query range (start, end].
func InRange(ts, start, end int64) bool {
	return ts > start && ts <= end
}
