package termcolor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDisablesColorWhenNoColorEnvSet(t *testing.T) {
	var buf bytes.Buffer
	p := Detect(&buf, []string{"NO_COLOR=1"}, false)
	assert.False(t, p.Enabled)
}

func TestDetectDisablesColorWhenForced(t *testing.T) {
	var buf bytes.Buffer
	p := Detect(&buf, []string{"COLORTERM=truecolor"}, true)
	assert.False(t, p.Enabled)
}

func TestRenderPassesThroughPlainTextWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	p := Detect(&buf, nil, true)
	assert.Equal(t, "hello", p.Render(p.Styles.Success, "hello"))
}
