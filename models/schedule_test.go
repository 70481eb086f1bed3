package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlots(t *testing.T) {
	tests := []struct {
		name      string
		startTime string
		frequency int
		expected  []string
	}{
		{"four a day from eight", "08:00", 4, []string{"08:00", "14:00", "20:00", "02:00"}},
		{"three a day wraps to midnight", "08:00", 3, []string{"08:00", "16:00", "00:00"}},
		{"once a day at midnight", "00:00", 1, []string{"00:00"}},
		{"five a day uses 288 minute steps", "08:00", 5, []string{"08:00", "12:48", "17:36", "22:24", "03:12"}},
		{"odd start minute", "23:45", 2, []string{"23:45", "11:45"}},
		{"seven a day floors each slot", "00:00", 7, []string{"00:00", "03:25", "06:51", "10:17", "13:42", "17:08", "20:34"}},
		{"thirteen a day does not drift", "08:00", 13, []string{"08:00", "09:50", "11:41", "13:32", "15:23", "17:13", "19:04", "20:55", "22:46", "00:36", "02:27", "04:18", "06:09"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := GenerateSlots(tt.startTime, tt.frequency)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, slots)
		})
	}
}

func TestGenerateSlotsProperties(t *testing.T) {
	starts := []string{"00:00", "08:00", "13:37", "23:59"}
	for _, start := range starts {
		for frequency := MinFrequency; frequency <= MaxFrequency; frequency++ {
			t.Run(fmt.Sprintf("%s/%d", start, frequency), func(t *testing.T) {
				slots, err := GenerateSlots(start, frequency)
				require.NoError(t, err)
				require.Len(t, slots, frequency)

				floor, ceil := minutesPerDay/frequency, (minutesPerDay+frequency-1)/frequency
				startH, startM, _ := ParseTimeOfDay(start)
				for i, s := range slots {
					assert.True(t, ValidTimeOfDay(s), "slot %q is not HH:MM", s)
					if i == 0 {
						assert.Equal(t, start, s)
						continue
					}
					prevH, prevM, _ := ParseTimeOfDay(slots[i-1])
					h, m, _ := ParseTimeOfDay(s)
					diff := ((h*60+m)-(prevH*60+prevM)+minutesPerDay)%minutesPerDay
					assert.True(t, diff == floor || diff == ceil, "step %d to %q is %d minutes", i, s, diff)

					offset := ((h*60+m)-(startH*60+startM)+minutesPerDay)%minutesPerDay
					assert.Equal(t, i*minutesPerDay/frequency, offset, "slot %d drifted", i)
				}
			})
		}
	}
}

func TestGenerateSlotsRejectsBadInput(t *testing.T) {
	_, err := GenerateSlots("08:00", 0)
	assert.IsType(t, &ValidationError{}, err)

	_, err = GenerateSlots("08:00", 25)
	assert.IsType(t, &ValidationError{}, err)

	_, err = GenerateSlots("24:00", 2)
	assert.IsType(t, &ValidationError{}, err)

	_, err = GenerateSlots("8:00", 2)
	assert.IsType(t, &ValidationError{}, err)
}

func TestValidTimeOfDay(t *testing.T) {
	assert.True(t, ValidTimeOfDay("00:00"))
	assert.True(t, ValidTimeOfDay("19:59"))
	assert.True(t, ValidTimeOfDay("23:59"))
	assert.False(t, ValidTimeOfDay("24:00"))
	assert.False(t, ValidTimeOfDay("12:60"))
	assert.False(t, ValidTimeOfDay("1200"))
	assert.False(t, ValidTimeOfDay(""))
}

func TestFormatTimeOfDay(t *testing.T) {
	ts := time.Date(2025, 3, 1, 7, 5, 42, 0, time.UTC)
	assert.Equal(t, "07:05", FormatTimeOfDay(ts))
}

func TestIntervalHours(t *testing.T) {
	assert.Equal(t, 24.0, IntervalHours(1))
	assert.Equal(t, 6.0, IntervalHours(4))
	assert.InDelta(t, 4.8, IntervalHours(5), 1e-9)
}
