package mathutil

// AbsInt32 returns the absolute value of a signed 32-bit integer widened to
// int64, so that math.MinInt32 does not overflow.
func AbsInt32(v int32) int64 {
	if v < 0 {
		return -int64(v)
	}
	return int64(v)
}

// AbsInt64 returns the absolute value of an int64
func AbsInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
