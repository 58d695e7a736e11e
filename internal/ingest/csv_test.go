package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripnav/internal/model"
)

func TestParseRoads(t *testing.T) {
	in := strings.Join([]string{
		"San Francisco CA,Sacramento CA,87.9",
		"",
		"Sacramento CA ,  Reno NV , 132",
		"bad line with,two",
		"A,B,not-a-number",
		"A,B,-4",
		",B,1",
	}, "\n")

	roads, warnings, err := ParseRoads(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, roads, 2)
	assert.Equal(t, model.RoadIn{CityA: "San Francisco CA", CityB: "Sacramento CA", Distance: 87.9}, roads[0])
	assert.Equal(t, model.RoadIn{CityA: "Sacramento CA", CityB: "Reno NV", Distance: 132}, roads[1])
	assert.Len(t, warnings, 4)
}

func TestParseAttractions(t *testing.T) {
	in := strings.Join([]string{
		"Golden Gate Bridge,San Francisco CA",
		"only-one-column",
		" Hoover Dam , Boulder City NV ",
		",Empty Name City",
	}, "\n")

	attractions, warnings, err := ParseAttractions(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, attractions, 2)
	assert.Equal(t, "Golden Gate Bridge", attractions[0].Name)
	assert.Equal(t, "Boulder City NV", attractions[1].City)
	assert.Len(t, warnings, 2)
}

func TestParseRoadsEmptyInput(t *testing.T) {
	roads, warnings, err := ParseRoads(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, roads)
	assert.Empty(t, warnings)
}
