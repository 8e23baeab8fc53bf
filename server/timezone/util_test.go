package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimezone(t *testing.T) {
	tests := []struct {
		name    string
		tz      string
		want    string
		wantErr bool
	}{
		{name: "empty string is local", tz: "", want: time.Local.String()},
		{name: "UTC", tz: "UTC", want: "UTC"},
		{name: "Asia/Shanghai", tz: "Asia/Shanghai", want: "Asia/Shanghai"},
		{name: "invalid timezone", tz: "Invalid/Timezone", want: "UTC", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseTimezone(tt.tz)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, loc)
			assert.Equal(t, tt.want, loc.String())
			assert.Equal(t, !tt.wantErr, IsValidTimezone(tt.tz))
		})
	}
}

func TestStartOfDay(t *testing.T) {
	shanghai, err := ParseTimezone("Asia/Shanghai")
	require.NoError(t, err)

	// 20:30 UTC is already the next day in Shanghai.
	ts := time.Date(2026, 3, 9, 20, 30, 0, 0, time.UTC)
	got := StartOfDay(ts, shanghai)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, shanghai), got)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), StartOfDay(ts, time.UTC))
}

func TestParseDate(t *testing.T) {
	shanghai, err := ParseTimezone("Asia/Shanghai")
	require.NoError(t, err)

	d, err := ParseDate("2026-03-10", shanghai)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, shanghai), d)

	_, err = ParseDate("10/03/2026", shanghai)
	assert.Error(t, err)
}
