package data

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndFormatValue(t *testing.T) {
	tests := []struct {
		cell string
		want any
	}{
		{"", nil},
		{"true", true},
		{"False", false},
		{"12.5", 12.5},
		{"-3", -3.0},
		{"1", 1.0},
		{"falling", "falling"},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got := ParseValue(tt.cell)
			assert.Equal(t, tt.want, got)
			if tt.want != nil {
				assert.Equal(t, ParseValue(FormatValue(got)), got)
			}
		})
	}
}

func TestNormalizeRecord(t *testing.T) {
	r, err := NormalizeRecord(map[string]any{
		"azimuth": json.Number("120.5"),
		"count":   3,
		"state":   true,
		"trend":   "rising",
		"off":     nil,
	})
	require.NoError(t, err)
	assert.Equal(t, Record{"azimuth": 120.5, "count": 3.0, "state": true, "trend": "rising", "off": nil}, r)

	_, err = NormalizeRecord(map[string]any{"nested": map[string]any{"a": 1}})
	assert.Error(t, err)
}

func TestToFloat(t *testing.T) {
	f, ok := ToFloat("971.25")
	assert.True(t, ok)
	assert.Equal(t, 971.25, f)

	f, ok = ToFloat(true)
	assert.True(t, ok)
	assert.Equal(t, 1.0, f)

	_, ok = ToFloat("falling")
	assert.False(t, ok)

	_, ok = ToFloat(nil)
	assert.False(t, ok)
}

func TestObservationLogGrowsColumns(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "training_data.csv")
	log := NewObservationLog(filename)

	count, err := log.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, log.Append(Record{"azimuth": 120.0, "darkness": false}))
	require.NoError(t, log.Append(Record{"azimuth": 200.0, "darkness": true}))
	require.NoError(t, log.Append(Record{"azimuth": 10.0, "pressure": 971.0, "darkness": true}))

	raw, err := os.ReadFile(filename)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "azimuth,darkness,pressure", lines[0])
	assert.Equal(t, "120,false,", lines[1])

	frame, err := log.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, []string{"azimuth", "darkness", "pressure"}, frame.Columns())
	assert.Nil(t, frame.Get(0, "pressure"))
	assert.Equal(t, 971.0, frame.Get(2, "pressure"))
	assert.Equal(t, true, frame.Get(1, "darkness"))
}

func TestFrameUnionOfColumns(t *testing.T) {
	f := NewFrame(Record{"b": 1.0, "a": 2.0}, Record{"c": "x"})

	assert.Equal(t, []string{"a", "b", "c"}, f.Columns())
	assert.True(t, f.Has("c"))
	assert.Nil(t, f.Get(0, "c"))
	assert.Equal(t, []any{nil, "x"}, f.Column("c"))
}

func TestValidateTrainingData(t *testing.T) {
	v := NewDataValidator()

	assert.Error(t, v.ValidateTrainingData(NewFrame(), "darkness"))
	assert.Error(t, v.ValidateTrainingData(NewFrame(Record{"azimuth": 1.0}), "darkness"))
	assert.Error(t, v.ValidateTrainingData(NewFrame(Record{"darkness": true}, Record{"azimuth": 1.0}), "darkness"))
	assert.NoError(t, v.ValidateTrainingData(NewFrame(Record{"darkness": true}), "darkness"))
}
