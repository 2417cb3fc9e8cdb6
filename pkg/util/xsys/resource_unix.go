//go:build unix

package xsys

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// 测试替换点，替换时不可 t.Parallel()。
var (
	getrlimit = unix.Getrlimit
	setrlimit = unix.Setrlimit
)

var fileLimitMu sync.Mutex

// EnsureFileLimit 把 RLIMIT_NOFILE 的 soft limit 提升到至少 want，返回生效后的 soft limit。
//
// want 超过 hard limit 时提升到 hard limit 为止，不要求特权。
func EnsureFileLimit(want uint64) (uint64, error) {
	if want == 0 {
		return 0, ErrInvalidFileLimit
	}

	fileLimitMu.Lock()
	defer fileLimitMu.Unlock()

	var rl unix.Rlimit
	if err := getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, fmt.Errorf("xsys: getrlimit RLIMIT_NOFILE: %w", err)
	}
	soft := targetSoft(want, rl.Cur, rl.Max)
	if soft == rl.Cur {
		return soft, nil
	}
	rl.Cur = soft
	if err := setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, fmt.Errorf("xsys: setrlimit RLIMIT_NOFILE to %d: %w", soft, err)
	}
	return soft, nil
}

// FileLimit 返回当前的 soft 和 hard limit。
func FileLimit() (soft, hard uint64, err error) {
	var rl unix.Rlimit
	if err := getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, 0, fmt.Errorf("xsys: getrlimit RLIMIT_NOFILE: %w", err)
	}
	return rl.Cur, rl.Max, nil
}
