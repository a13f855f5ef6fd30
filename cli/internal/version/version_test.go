package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAvailable(t *testing.T) {
	orig := LatestKnown
	LatestKnown = "0.2.0"
	t.Cleanup(func() { LatestKnown = orig })

	newer, latest, err := UpdateAvailable("0.1.0")
	require.NoError(t, err)
	assert.True(t, newer)
	assert.Equal(t, "0.2.0", latest)

	newer, _, err = UpdateAvailable("0.2.0")
	require.NoError(t, err)
	assert.False(t, newer)

	_, _, err = UpdateAvailable("not-a-version")
	assert.Error(t, err)
}

func TestInfoString(t *testing.T) {
	s := Get().String()
	assert.Contains(t, s, "specql version")
	assert.Contains(t, s, Version)
}
