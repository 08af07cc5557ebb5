package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"polybot/internal/domain/entity"
)

var testNames = entity.ClassNamesFromList([]string{"person", "bicycle", "car", "dog", "cat"})

func TestParseLabels_Line(t *testing.T) {
	labels, err := ParseLabels(strings.NewReader("0 0.5 0.5 0.2 0.3"), entity.NewClassNames(map[int]string{0: "person"}))
	require.NoError(t, err)
	require.Equal(t, []entity.Label{{Class: "person", CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.3}}, labels)
}

func TestParseLabels_MultipleLines(t *testing.T) {
	labels, err := ParseLabels(strings.NewReader("3 0.1 0.2 0.3 0.4\n4 0.5 0.6 0.1 0.1\n"), testNames)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	require.Equal(t, "dog", labels[0].Class)
	require.Equal(t, "cat", labels[1].Class)
}

func TestParseLabels_EmptyFile(t *testing.T) {
	labels, err := ParseLabels(strings.NewReader(""), testNames)
	require.NoError(t, err)
	require.NotNil(t, labels)
	require.Empty(t, labels)
}

func TestParseLabels_Malformed(t *testing.T) {
	cases := map[string]string{
		"too few fields":   "0 0.5 0.5 0.2",
		"too many fields":  "0 0.5 0.5 0.2 0.3 0.9",
		"bad class index":  "x 0.5 0.5 0.2 0.3",
		"unknown class":    "42 0.5 0.5 0.2 0.3",
		"bad coordinate":   "0 0.5 abc 0.2 0.3",
		"out of range":     "0 1.5 0.5 0.2 0.3",
		"blank line":       "0 0.5 0.5 0.2 0.3\n\n1 0.5 0.5 0.2 0.3",
		"second line only": "0 0.5 0.5 0.2 0.3\n1 0.5",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLabels(strings.NewReader(input), testNames)
			require.ErrorIs(t, err, entity.ErrMalformedLabels)
		})
	}
}
