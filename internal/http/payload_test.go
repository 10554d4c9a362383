package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	jst := time.FixedZone("JST", 9*60*60)
	want := time.Date(2024, time.March, 14, 10, 0, 0, 0, jst)

	for _, value := range []string{
		"2024-03-14T10:00",
		"2024-03-14T10:00:00",
		"2024-03-14 10:00",
		" 2024-03-14 10:00:00 ",
		"2024-03-14T01:00:00Z",
		"2024-03-14T10:00:00+09:00",
	} {
		got, err := parseTimestamp(value, jst)
		require.NoError(t, err, value)
		assert.True(t, got.Equal(want), "%s parsed as %s", value, got)
	}

	zero, err := parseTimestamp("", jst)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = parseTimestamp("14/03/2024 10:00", jst)
	assert.ErrorIs(t, err, errInvalidTimestamp)
}

func TestEquipmentField(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`null`:                          "",
		`" projector "`:                 "projector",
		`["projector","","whiteboard"]`: "projector, whiteboard",
		`[]`:                            "",
	}
	for input, want := range cases {
		var got equipmentField
		require.NoError(t, got.UnmarshalJSON([]byte(input)), input)
		assert.Equal(t, want, string(got), input)
	}

	var bad equipmentField
	assert.Error(t, bad.UnmarshalJSON([]byte(`{"kind":"projector"}`)))
}

func TestCountField(t *testing.T) {
	t.Parallel()

	cases := map[string]int{`3`: 3, `"4"`: 4, `" 5 "`: 5, `""`: 0, `null`: 0}
	for input, want := range cases {
		var got countField
		require.NoError(t, got.UnmarshalJSON([]byte(input)), input)
		assert.Equal(t, want, int(got), input)
	}

	var bad countField
	assert.Error(t, bad.UnmarshalJSON([]byte(`"many"`)))
}
