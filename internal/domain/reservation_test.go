package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	later := base.Add(2 * time.Hour)

	tests := []struct {
		name     string
		status   ReservationStatus
		extended *time.Time
		now      time.Time
		want     bool
	}{
		{"pending before expiry", ReservationPending, nil, base.Add(-time.Second), false},
		{"pending at expiry", ReservationPending, nil, base, false},
		{"pending after expiry", ReservationPending, nil, base.Add(time.Second), true},
		{"extension revives", ReservationPending, &later, base.Add(time.Hour), false},
		{"past extension", ReservationPending, &later, later.Add(time.Second), true},
		{"confirmed never expires", ReservationConfirmed, nil, base.Add(48 * time.Hour), false},
		{"cancelled never expires", ReservationCancelled, nil, base.Add(48 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpired(tt.status, base, tt.extended, tt.now))
		})
	}
}

func TestIsExpired_MonotonicInNow(t *testing.T) {
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	expired := false
	for i := -10; i <= 10; i++ {
		now := base.Add(time.Duration(i) * time.Minute)
		got := IsExpired(ReservationPending, base, nil, now)
		if expired {
			assert.True(t, got, "once expired must stay expired at %s", now)
		}
		expired = got
	}
	assert.True(t, expired)
}
