package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{"decimal", "42.5", 42.5, true},
		{"integer", "7", 7, true},
		{"negative", "-3.25", -3.25, true},
		{"surrounding whitespace", "  0.627\t", 0.627, true},
		{"exponent", "1e3", 1000, true},
		{"letters", "abc", 0, false},
		{"empty", "", 0, false},
		{"only spaces", "   ", 0, false},
		{"header token", "Glucose", 0, false},
		{"trailing junk", "12abc", 0, false},
		{"nan", "NaN", 0, false},
		{"infinity", "Inf", 0, false},
		{"overflow", "1e400", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestApproxExp(t *testing.T) {
	tests := []struct {
		name  string
		input float64
	}{
		{"zero", 0},
		{"one", 1},
		{"minus one", -1},
		{"small", 1e-9},
		{"moderate", 7.3},
		{"negative moderate", -12.5},
		{"upper bound", 60},
		{"lower bound", -60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := math.Exp(tt.input)
			got := ApproxExp(tt.input)
			assert.InEpsilon(t, want, got, 1e-6)
		})
	}
}

func TestApproxExp_ExactAtZero(t *testing.T) {
	assert.Equal(t, 1.0, ApproxExp(0))
}

func TestApproxExp_Clamped(t *testing.T) {
	assert.Equal(t, ApproxExp(60), ApproxExp(1000))
	assert.Equal(t, ApproxExp(-60), ApproxExp(-1000))
	assert.Equal(t, ApproxExp(60), ApproxExp(math.Inf(1)))
	assert.Greater(t, ApproxExp(-60), 0.0)
}

func TestApproxExp_Monotonic(t *testing.T) {
	prev := ApproxExp(-60)
	for x := -59.75; x <= 60; x += 0.25 {
		cur := ApproxExp(x)
		assert.Greater(t, cur, prev, "ApproxExp must increase at x=%v", x)
		prev = cur
	}
}

func TestSigmoid(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{
			name:     "sigmoid of 0",
			input:    0,
			expected: 0.5,
		},
		{
			name:     "sigmoid of positive value",
			input:    1.0,
			expected: 0.7310585786300049,
		},
		{
			name:     "sigmoid of negative value",
			input:    -1.0,
			expected: 0.2689414213699951,
		},
		{
			name:     "sigmoid approaches 1 for large positive",
			input:    10.0,
			expected: 0.9999546021312976,
		},
		{
			name:     "sigmoid approaches 0 for large negative",
			input:    -10.0,
			expected: 4.5397868702434395e-05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sigmoid(tt.input)
			assert.InDelta(t, tt.expected, result, 1e-10)
		})
	}
}

func TestSigmoid_OpenInterval(t *testing.T) {
	for _, z := range []float64{-1e6, -60, -40, 0, 40, 60, 1e6} {
		s := Sigmoid(z)
		assert.Greater(t, s, 0.0, "z=%v", z)
		assert.Less(t, s, 1.0, "z=%v", z)
	}
}

func TestSigmoid_Symmetry(t *testing.T) {
	for z := -30.0; z <= 30; z += 0.5 {
		assert.InDelta(t, 1.0, Sigmoid(z)+Sigmoid(-z), 1e-12, "z=%v", z)
	}
}

func TestSigmoid_StrictlyIncreasing(t *testing.T) {
	prev := Sigmoid(-30)
	for z := -29.9; z <= 30; z += 0.1 {
		cur := Sigmoid(z)
		assert.Greater(t, cur, prev, "z=%v", z)
		prev = cur
	}
}

func TestClip(t *testing.T) {
	assert.Equal(t, -1.0, clip(-5, -1, 1))
	assert.Equal(t, 1.0, clip(5, -1, 1))
	assert.Equal(t, 0.25, clip(0.25, -1, 1))
}
