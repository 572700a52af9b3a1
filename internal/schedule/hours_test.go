package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoursProvider_OpenWindows(t *testing.T) {
	src := newFakeHoursSource()
	src.weekly[time.Monday] = DayHours{
		IsOpen:  true,
		Windows: []Window{{StartMin: 540, EndMin: 720}, {StartMin: 840, EndMin: 1080}},
	}
	src.weekly[time.Tuesday] = DayHours{IsOpen: false, Windows: []Window{{StartMin: 540, EndMin: 720}}}

	holiday := CivilDate{Year: 2025, Month: time.June, Day: 2} // a Monday
	src.exceptions[holiday.String()] = &DayException{IsOpen: false}

	halfDay := CivilDate{Year: 2025, Month: time.June, Day: 9} // a Monday
	src.exceptions[halfDay.String()] = &DayException{IsOpen: true, Windows: []Window{{StartMin: 600, EndMin: 780}}}

	provider := NewHoursProvider(src)
	ctx := context.Background()

	t.Run("weekly schedule applies when no exception", func(t *testing.T) {
		windows, err := provider.OpenWindows(ctx, "tenant-1", CivilDate{Year: 2025, Month: time.June, Day: 16})
		require.NoError(t, err)
		assert.Equal(t, []Window{{StartMin: 540, EndMin: 720}, {StartMin: 840, EndMin: 1080}}, windows)
	})

	t.Run("closed weekday returns empty even with stored ranges", func(t *testing.T) {
		windows, err := provider.OpenWindows(ctx, "tenant-1", CivilDate{Year: 2025, Month: time.June, Day: 17})
		require.NoError(t, err)
		assert.Empty(t, windows)
	})

	t.Run("missing weekday row is closed", func(t *testing.T) {
		windows, err := provider.OpenWindows(ctx, "tenant-1", CivilDate{Year: 2025, Month: time.June, Day: 15}) // Sunday
		require.NoError(t, err)
		assert.Empty(t, windows)
	})

	t.Run("closed exception wins over open weekday", func(t *testing.T) {
		windows, err := provider.OpenWindows(ctx, "tenant-1", holiday)
		require.NoError(t, err)
		assert.Empty(t, windows)
	})

	t.Run("open exception replaces weekly ranges entirely", func(t *testing.T) {
		windows, err := provider.OpenWindows(ctx, "tenant-1", halfDay)
		require.NoError(t, err)
		assert.Equal(t, []Window{{StartMin: 600, EndMin: 780}}, windows)
	})
}
