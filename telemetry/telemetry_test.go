package telemetry_test

import (
	"testing"

	"github.com/flowrt/flowrt/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestSetLevelFallsBackToInfoOnUnrecognizedValue(t *testing.T) {
	telemetry.SetLevel("not-a-level")
	assert.Equal(t, "info", telemetry.Logger.GetLevel().String())
}

func TestSetLevelParsesKnownValue(t *testing.T) {
	telemetry.SetLevel("debug")
	assert.Equal(t, "debug", telemetry.Logger.GetLevel().String())
	telemetry.SetLevel("info")
}

func TestNewReturnsEntryWithFields(t *testing.T) {
	entry := telemetry.New("myapp", "dev", "flow1")
	assert.Equal(t, "myapp", entry.Data["app"])
	assert.Equal(t, "dev", entry.Data["profile"])
	assert.Equal(t, "flow1", entry.Data["flow"])
}
