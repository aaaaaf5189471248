package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBaselineDate(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

	d, err := ParseBaselineDate("2024-01-05", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseBaselineDate("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseBaselineDate("05/01/2024", now)
	assert.Error(t, err)

	_, err = ParseBaselineDate("2024-01-11", now)
	assert.Error(t, err, "future dates are rejected")
}

func TestIsHistorical(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

	assert.True(t, IsHistorical(time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, IsHistorical(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), now))
}
