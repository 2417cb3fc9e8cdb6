package xjson

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Admitted int    `json:"admitted"`
	Note     string `json:"note,omitempty"`
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, summary{Admitted: 3, Note: "<a&b>"}))
	assert.Equal(t, "{\n  \"admitted\": 3,\n  \"note\": \"<a&b>\"\n}\n", buf.String())
}

func TestEncode_Errors(t *testing.T) {
	assert.ErrorIs(t, Encode(nil, 1), ErrNilWriter)

	var buf bytes.Buffer
	err := Encode(&buf, math.NaN())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xjson: encode float64")
}

func TestPretty(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "null"},
		{"slice", []int{1, 2}, "[\n  1,\n  2\n]"},
		{"empty_struct", struct{}{}, "{}"},
		{"struct", summary{Admitted: 1}, "{\n  \"admitted\": 1\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pretty(tt.input))
		})
	}

	assert.Contains(t, Pretty(math.Inf(1)), "<marshal error:")
}
