package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithinProviderAuthorizationLimit(t *testing.T) {
	cases := []struct {
		name      string
		original  int64
		candidate int64
		within    bool
	}{
		{"equal to original", 1000, 1000, true},
		{"just under 15% headroom", 1000, 1149, true},
		{"exactly at 15% headroom", 1000, 1150, true},
		{"just over 15% headroom", 1000, 1151, false},
		{"far over headroom", 1000, 2000, false},
		{"lowered amount always within", 1000, 100, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.within, WithinProviderAuthorizationLimit(tc.original, tc.candidate))
		})
	}
}
