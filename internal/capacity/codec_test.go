package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_BuildsLeftToRightConjunction(t *testing.T) {
	spec, err := Decode("max_18,min_12,even")
	require.NoError(t, err)

	want := And{
		Left:  And{Left: Max{Limit: 18}, Right: Min{Limit: 12}},
		Right: Even{},
	}
	assert.Equal(t, want, spec)
}

func TestDecode_SingleToken(t *testing.T) {
	tests := map[string]Spec{
		"per_field_9":    PerField{PerField: 9},
		"divisible_by_6": DivisibleBy{Divisor: 6},
		"exact_10":       Exact{Limit: 10},
		"max_0":          Max{Limit: 0},
		"even":           Even{},
		" min_4 ":        Min{Limit: 4},
	}

	for text, want := range tests {
		t.Run(text, func(t *testing.T) {
			spec, err := Decode(text)
			require.NoError(t, err)
			assert.Equal(t, want, spec)
		})
	}
}

func TestDecode_Blank(t *testing.T) {
	for _, text := range []string{"", "   "} {
		spec, err := Decode(text)
		require.NoError(t, err)
		assert.Nil(t, spec)
	}
}

func TestDecode_InvalidTokens(t *testing.T) {
	tests := []string{
		"max",
		"max_",
		"max_abc",
		"max_-1",
		"max_+3",
		"odd",
		"even_2",
		"divisible_by_1",
		"divisible_by_0",
		"per_field_0",
		"max_18,,even",
		"max_18,bogus",
		"MAX_18",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			spec, err := Decode(text)
			require.ErrorIs(t, err, ErrInvalidConstraintToken)
			assert.Nil(t, spec, "decode must not return a partial spec")
		})
	}
}

func TestEncode_FlattensConjunction(t *testing.T) {
	spec := AllOf(Max{Limit: 18}, Min{Limit: 12}, Even{}, PerField{PerField: 9}, DivisibleBy{Divisor: 3}, Exact{Limit: 18})

	text, err := Encode(spec)
	require.NoError(t, err)
	assert.Equal(t, "max_18,min_12,even,per_field_9,divisible_by_3,exact_18", text)
}

func TestEncode_RightNestedAndFlattensInOrder(t *testing.T) {
	spec := And{Left: Max{Limit: 18}, Right: And{Left: Min{Limit: 2}, Right: Even{}}}

	text, err := Encode(spec)
	require.NoError(t, err)
	assert.Equal(t, "max_18,min_2,even", text)
}

func TestEncode_Nil(t *testing.T) {
	text, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestEncode_RejectsNonConjunctiveComposition(t *testing.T) {
	specs := []Spec{
		Or{Max{Limit: 1}, Even{}},
		Not{Even{}},
		AndNot{Max{Limit: 18}, Even{}},
		OrNot{Max{Limit: 18}, Even{}},
		And{Max{Limit: 18}, Or{Even{}, Min{Limit: 2}}},
	}

	for _, spec := range specs {
		t.Run(spec.Name(), func(t *testing.T) {
			_, err := Encode(spec)
			assert.ErrorIs(t, err, ErrUnencodableSpec)
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	texts := []string{
		"max_18,min_12,even",
		"per_field_9",
		"divisible_by_6",
		"exact_10,per_field_5,max_12",
		" max_18 , even ",
	}

	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			first, err := Decode(text)
			require.NoError(t, err)

			encoded, err := Encode(first)
			require.NoError(t, err)

			second, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestEncode_RejectsValuesDecodeWouldRefuse(t *testing.T) {
	specs := []Spec{
		Max{Limit: -1},
		Min{Limit: -3},
		Exact{Limit: -1},
		DivisibleBy{Divisor: 1},
		DivisibleBy{Divisor: 0},
		PerField{PerField: 0},
		AllOf(Max{Limit: 18}, PerField{PerField: 0}),
	}

	for _, spec := range specs {
		t.Run(Describe(spec), func(t *testing.T) {
			_, err := Encode(spec)
			assert.ErrorIs(t, err, ErrUnencodableSpec)
		})
	}
}

func TestEncode_BoundaryValuesDecode(t *testing.T) {
	spec := AllOf(Max{Limit: 0}, Min{Limit: 0}, Exact{Limit: 0}, DivisibleBy{Divisor: 2}, PerField{PerField: 1})

	text, err := Encode(spec)
	require.NoError(t, err)
	assert.Equal(t, "max_0,min_0,exact_0,divisible_by_2,per_field_1", text)

	decoded, err := Decode(text)
	require.NoError(t, err)
	assert.Equal(t, spec, decoded)
}
