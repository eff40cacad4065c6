package stream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

func TestShiftEventMessageEncoding(t *testing.T) {
	odometer := 51000.0
	sa := &domain.ShiftAssignment{ID: 3, DriverID: 4, VehicleID: 5, Status: domain.ShiftStatusCompleted}
	e := &domain.ShiftEvent{
		ID:                9,
		ShiftAssignmentID: 3,
		EventType:         domain.ShiftEventClockOut,
		Odometer:          &odometer,
		CreatedAt:         time.Date(2025, 3, 1, 16, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(NewShiftEventMessage(sa, e))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "clock_out", got["eventType"])
	assert.Equal(t, "completed", got["status"])
	assert.Equal(t, 51000.0, got["odometer"])
	assert.NotContains(t, got, "gpsLat")
	assert.Equal(t, "2025-03-01T16:00:00Z", got["occurredAt"])
}
