package uevnum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uevlog/uev-go/uevnum"
)

func TestLevelOrdering(t *testing.T) {
	// Smaller is more severe; filters compare with <=.
	assert.True(t, uevnum.ErrorLevel < uevnum.WarnLevel)
	assert.True(t, uevnum.WarnLevel < uevnum.InfoLevel)
	assert.True(t, uevnum.InfoLevel < uevnum.DebugLevel)
	assert.True(t, uevnum.DebugLevel < uevnum.TraceLevel)
}

func TestLevelFormatting(t *testing.T) {
	assert.Equal(t, "error", uevnum.ErrorLevel.String())
	assert.Equal(t, "trace", uevnum.TraceLevel.String())
	assert.Equal(t, "level-42", uevnum.Level(42).String())
}

func TestLevelString(t *testing.T) {
	for _, level := range []uevnum.Level{
		uevnum.ErrorLevel, uevnum.WarnLevel, uevnum.InfoLevel, uevnum.DebugLevel, uevnum.TraceLevel,
	} {
		parsed, err := uevnum.LevelString(level.String())
		assert.NoError(t, err)
		assert.Equal(t, level, parsed)
	}

	warn, err := uevnum.LevelString("WARNING")
	assert.NoError(t, err)
	assert.Equal(t, uevnum.WarnLevel, warn)

	_, err = uevnum.LevelString("loud")
	assert.Error(t, err)
}
