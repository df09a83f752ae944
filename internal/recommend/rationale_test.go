package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-image-enhancer/pkg/models"
)

func TestRationale_Segments(t *testing.T) {
	tests := []struct {
		name string
		in   Rationale
		want []models.RationaleSegment
	}{
		{
			name: "mixed",
			in:   "The image is **dark**. Try **high-pass**.",
			want: []models.RationaleSegment{
				{Text: "The image is "},
				{Text: "dark", Emphasis: true},
				{Text: ". Try "},
				{Text: "high-pass", Emphasis: true},
				{Text: "."},
			},
		},
		{
			name: "plain",
			in:   "no markers here",
			want: []models.RationaleSegment{{Text: "no markers here"}},
		},
		{
			name: "leading emphasis",
			in:   "**Sharp** already",
			want: []models.RationaleSegment{{Text: "Sharp", Emphasis: true}, {Text: " already"}},
		},
		{
			name: "unterminated marker stays literal",
			in:   "a **b",
			want: []models.RationaleSegment{{Text: "a **b"}},
		},
		{
			name: "empty emphasis is dropped",
			in:   "a****b",
			want: []models.RationaleSegment{{Text: "a"}, {Text: "b"}},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Segments())
		})
	}
}

func TestRationale_Plain(t *testing.T) {
	assert.Equal(t, "The image is dark.", Rationale("The image is **dark**.").Plain())
}

func TestTemplates_HaveEmphasis(t *testing.T) {
	for _, c := range []RationaleClass{ClassLowBlur, ClassHighBlur, ClassDark, ClassBright, ClassDefault} {
		segments := templateFor(c).Segments()
		var emphasized int
		for _, s := range segments {
			if s.Emphasis {
				emphasized++
			}
		}
		assert.Greater(t, emphasized, 0, "template %s", c)
	}
}
