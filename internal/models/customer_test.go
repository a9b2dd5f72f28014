package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCustomerAge(t *testing.T) {
	today := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dob  time.Time
		want int
	}{
		{"birthday earlier this year", time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC), 36},
		{"birthday later this year", time.Date(1990, 11, 2, 0, 0, 0, 0, time.UTC), 35},
		{"birthday today", time.Date(1966, 8, 28, 0, 0, 0, 0, time.UTC), 60},
		{"day before sixtieth birthday", time.Date(1966, 8, 29, 0, 0, 0, 0, time.UTC), 59},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Customer{DOB: tt.dob}
			assert.Equal(t, tt.want, c.Age(today))
		})
	}
}

func TestCustomerIsSenior(t *testing.T) {
	today := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	assert.True(t, Customer{DOB: time.Date(1966, 8, 28, 0, 0, 0, 0, time.UTC)}.IsSenior(today))
	assert.True(t, Customer{DOB: time.Date(1950, 1, 15, 0, 0, 0, 0, time.UTC)}.IsSenior(today))
	assert.False(t, Customer{DOB: time.Date(1966, 8, 29, 0, 0, 0, 0, time.UTC)}.IsSenior(today))
	assert.False(t, Customer{DOB: time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC)}.IsSenior(today))
}
