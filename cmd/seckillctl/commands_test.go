package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xseckill/pkg/business/xseckill"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()
	return runCLIWithInput(t, "", args...)
}

func runCLIWithInput(t *testing.T, input string, args ...string) cliResult {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), append([]string{"seckillctl"}, args...), strings.NewReader(input), &out, &errOut)
	return cliResult{code: code, stdout: out.String(), stderr: errOut.String()}
}

func decode[T any](t *testing.T, r cliResult) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &v), "stdout: %s\nstderr: %s", r.stdout, r.stderr)
	return v
}

func redisConfig(t *testing.T) (*miniredis.Miniredis, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, writeConfig(t, "seckill.yaml", fmt.Sprintf("redis:\n  addr: %s\nlog:\n  level: error\n", mr.Addr()))
}

func localConfig(t *testing.T) string {
	t.Helper()
	return writeConfig(t, "local.yaml", "mode: local\nfile_limit: 256\nlog:\n  level: error\n")
}

// =============================================================================
// preload / admit
// =============================================================================

func TestPreloadThenAdmit(t *testing.T) {
	mr, cfg := redisConfig(t)

	// Given: 预热库存为 1 的券
	r := runCLI(t, "-c", cfg, "preload", "--voucher", "1", "--stock", "1")
	require.Equal(t, 0, r.code, r.stderr)
	v := decode[xseckill.Voucher](t, r)
	assert.Equal(t, int64(1), v.ID)
	stock, err := mr.Get("seckill:stock:1")
	require.NoError(t, err)
	assert.Equal(t, "1", stock)

	// When: 两个用户先后抢购（各自是独立进程）
	first := runCLI(t, "-c", cfg, "admit", "--voucher", "1", "--user", "7")
	second := runCLI(t, "-c", cfg, "admit", "--voucher", "1", "--user", "8")

	// Then
	require.Equal(t, 0, first.code, first.stderr)
	won := decode[admitResult](t, first)
	assert.NotZero(t, won.OrderID)
	assert.True(t, won.Persisted)

	assert.Equal(t, 1, second.code)
	lost := decode[admitResult](t, second)
	assert.Zero(t, lost.OrderID)
	assert.Equal(t, string(xseckill.ReasonSoldOut), lost.Rejected)
}

func TestAdmit_UnknownVoucher(t *testing.T) {
	_, cfg := redisConfig(t)

	r := runCLI(t, "-c", cfg, "admit", "--voucher", "404", "--user", "1")

	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "voucher not found")
}

func TestRedisUnavailable(t *testing.T) {
	mr, cfg := redisConfig(t)
	mr.Close()

	r := runCLI(t, "-c", cfg, "nextid")

	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "错误")
}

// =============================================================================
// bench
// =============================================================================

func TestBench_Local(t *testing.T) {
	r := runCLI(t, "-c", localConfig(t), "bench", "--stock", "10", "--users", "50", "--concurrency", "8")
	require.Equal(t, 0, r.code, r.stderr)

	res := decode[benchResult](t, r)
	assert.Equal(t, 10, res.Admitted)
	assert.Equal(t, 40, res.SoldOut)
	assert.Equal(t, int64(10), res.Persisted)
	assert.Zero(t, res.Remaining)
	assert.Zero(t, res.Failed)
}

func TestBench_RepeatedUsersAreDuplicates(t *testing.T) {
	r := runCLI(t, "-c", localConfig(t), "bench", "--stock", "100", "--users", "10", "--repeat", "3")
	require.Equal(t, 0, r.code, r.stderr)

	res := decode[benchResult](t, r)
	assert.Equal(t, 30, res.Attempts)
	assert.Equal(t, 10, res.Admitted)
	assert.Equal(t, 20, res.Duplicate)
	assert.Equal(t, int64(90), res.Remaining)
}

func TestBench_Redis(t *testing.T) {
	_, cfg := redisConfig(t)

	r := runCLI(t, "-c", cfg, "bench", "--voucher", "3", "--stock", "5", "--users", "20")
	require.Equal(t, 0, r.code, r.stderr)

	res := decode[benchResult](t, r)
	assert.Equal(t, 5, res.Admitted)
	assert.Equal(t, 15, res.SoldOut)
	assert.Equal(t, int64(5), res.Persisted)
	assert.Zero(t, res.Remaining)
}

// =============================================================================
// nextid
// =============================================================================

func TestNextID_Redis(t *testing.T) {
	_, cfg := redisConfig(t)

	r := runCLI(t, "-c", cfg, "nextid", "--count", "3", "--namespace", "coupon")
	require.Equal(t, 0, r.code, r.stderr)

	ids := decode[[]idResult](t, r)
	require.Len(t, ids, 3)
	for i, id := range ids {
		require.NotNil(t, id.Sequence)
		assert.Equal(t, uint32(i+1), *id.Sequence)
		assert.NotNil(t, id.Time)
		if i > 0 {
			assert.Greater(t, id.ID, ids[i-1].ID)
		}
	}
}

func TestNextID_Local(t *testing.T) {
	r := runCLI(t, "-c", localConfig(t), "nextid", "--count", "2")
	require.Equal(t, 0, r.code, r.stderr)

	ids := decode[[]idResult](t, r)
	require.Len(t, ids, 2)
	assert.Nil(t, ids[0].Sequence)
	assert.NotEqual(t, ids[0].ID, ids[1].ID)
}

// =============================================================================
// serve
// =============================================================================

func TestServe_AdmitsFromInputAndPersists(t *testing.T) {
	_, cfg := redisConfig(t)
	r := runCLI(t, "-c", cfg, "preload", "--voucher", "5", "--stock", "2")
	require.Equal(t, 0, r.code, r.stderr)

	// Given: 5 行输入，含重复用户、售罄、格式错误和注释
	input := "1 5\n2 5\n\n# comment\n2 5\n3 5\nbad line\n"

	// When
	r = runCLIWithInput(t, input, "-c", cfg, "serve", "--interval", "1h")

	// Then: 每行一个结果，最后一行是汇总
	require.Equal(t, 0, r.code, r.stderr)
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.Len(t, lines, 6, r.stdout)

	var results []admitResult
	for _, line := range lines[:5] {
		var res admitResult
		require.NoError(t, json.Unmarshal([]byte(line), &res), line)
		results = append(results, res)
	}
	assert.NotZero(t, results[0].OrderID)
	assert.NotZero(t, results[1].OrderID)
	assert.Equal(t, string(xseckill.ReasonDuplicateOrder), results[2].Rejected)
	assert.Equal(t, string(xseckill.ReasonSoldOut), results[3].Rejected)
	assert.NotEmpty(t, results[4].Error)

	var summary serveSummary
	require.NoError(t, json.Unmarshal([]byte(lines[5]), &summary))
	assert.Equal(t, serveSummary{Admitted: 2, Rejected: 2, Invalid: 1, Persisted: 2}, summary)
}

func TestServe_EmptyInput(t *testing.T) {
	r := runCLI(t, "-c", localConfig(t), "serve", "--interval", "1h")
	require.Equal(t, 0, r.code, r.stderr)

	summary := decode[serveSummary](t, r)
	assert.Equal(t, serveSummary{}, summary)
}

// =============================================================================
// 参数错误
// =============================================================================

func TestUsageErrors(t *testing.T) {
	cfg := localConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{"preload_without_voucher", []string{"preload"}},
		{"preload_negative_stock", []string{"preload", "--voucher", "1", "--stock=-1"}},
		{"preload_bad_begin", []string{"preload", "--voucher", "1", "--begin", "tomorrow"}},
		{"admit_without_user", []string{"admit", "--voucher", "1"}},
		{"bench_zero_users", []string{"bench", "--users", "0"}},
		{"nextid_zero_count", []string{"nextid", "--count", "0"}},
		{"serve_zero_interval", []string{"serve", "--interval", "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runCLI(t, append([]string{"-c", cfg}, tt.args...)...)
			assert.Equal(t, 2, r.code, r.stderr)
			assert.Contains(t, r.stderr, "参数错误")
		})
	}
}

func TestBadConfigFile(t *testing.T) {
	r := runCLI(t, "-c", writeConfig(t, "bad.yaml", "mode: cluster\n"), "nextid")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "unknown mode")
}

func TestExitError(t *testing.T) {
	err := &exitError{code: 2}
	assert.Equal(t, "exit status 2", err.Error())
}
