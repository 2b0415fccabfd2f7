package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDurationDays(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"3 gündür başım ağrıyor", 3},
		{"5 gün oldu", 5},
		{"2 haftadır öksürüyorum", 14},
		{"1 hafta oldu", 7},
		{"1 aydır devam ediyor", 30},
		{"2 ay oldu", 60},
		{"12", 12},
	}
	for _, tc := range cases {
		got := ExtractDurationDays(tc.in)
		require.NotNil(t, got, tc.in)
		assert.Equal(t, tc.want, *got, tc.in)
	}
}

func TestExtractDurationDays_NoMatch(t *testing.T) {
	for _, in := range []string{
		"",
		"bugün başladı",
		"başım ağrıyor",
		"999 gündür",
		"60 haftadır",
		"25 aydır",
		"0 gündür",
	} {
		assert.Nil(t, ExtractDurationDays(in), in)
	}
}
