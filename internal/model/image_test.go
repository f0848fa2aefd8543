package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileOutputName(t *testing.T) {
	p := Profile{Width: 4725, Height: 9225, DPI: 150}

	assert.Equal(t, "name_4725x9225_150dpi.png", p.OutputName("name"))
	assert.Equal(t, "towel.v2_4725x9225_150dpi.png", p.OutputName("towel.v2"))
	assert.Equal(t, "4725x9225@150dpi", p.String())
}

func TestOutcomeStatus(t *testing.T) {
	assert.True(t, Outcome{Status: StatusAccepted}.Accepted())
	assert.False(t, Outcome{Status: StatusAccepted}.Skipped())
	assert.True(t, Outcome{Status: StatusSkipped}.Skipped())
	assert.False(t, Outcome{Status: StatusFailed}.Accepted())
}
