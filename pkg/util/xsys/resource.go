package xsys

// targetSoft 计算新的 soft limit：不低于当前值，不高于 hard limit。
func targetSoft(want, soft, hard uint64) uint64 {
	if want <= soft {
		return soft
	}
	return min(want, hard)
}
