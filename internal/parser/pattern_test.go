package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskMetavariables(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		masked string
		vars   []Metavariable
	}{
		{
			name:   "no metavariables",
			text:   "value = 1",
			masked: "value = 1",
		},
		{
			name:   "single",
			text:   "value = $X",
			masked: "value = _X",
			vars:   []Metavariable{{Name: "X", Start: 8, End: 10}},
		},
		{
			name:   "variadic",
			text:   "foo($...ARGS)",
			masked: "foo(____ARGS)",
			vars:   []Metavariable{{Name: "ARGS", Variadic: true, Start: 4, End: 12}},
		},
		{
			name:   "mixed",
			text:   "$FN($A, $...REST)",
			masked: "_FN(_A, ____REST)",
			vars: []Metavariable{
				{Name: "FN", Start: 0, End: 3},
				{Name: "A", Start: 4, End: 6},
				{Name: "REST", Variadic: true, Start: 8, End: 16},
			},
		},
		{
			name:   "lower case is left alone",
			text:   `"${var.region}" and $x`,
			masked: `"${var.region}" and $x`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masked, vars := maskMetavariables(tt.text)
			assert.Equal(t, tt.masked, masked)
			assert.Equal(t, tt.vars, vars)
			require.Len(t, masked, len(tt.text), "masking must keep byte offsets")
		})
	}
}
