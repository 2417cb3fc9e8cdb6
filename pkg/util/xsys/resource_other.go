//go:build !unix

package xsys

// EnsureFileLimit 非 Unix 平台返回 ErrUnsupportedPlatform。
func EnsureFileLimit(want uint64) (uint64, error) {
	if want == 0 {
		return 0, ErrInvalidFileLimit
	}
	return 0, ErrUnsupportedPlatform
}

// FileLimit 非 Unix 平台返回 ErrUnsupportedPlatform。
func FileLimit() (soft, hard uint64, err error) {
	return 0, 0, ErrUnsupportedPlatform
}
