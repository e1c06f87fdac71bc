package cliprogress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_NonTTYWritesOneLinePerUpdate(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)
	assert.False(t, r.interactive)

	r.Update(Event{Stage: StageScanning, Current: 1, Total: 10, Message: "a.go"})
	r.Update(Event{Stage: StageScanning, Current: 2, Total: 10, Message: "b.go"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "1/10")
	assert.Contains(t, lines[1], "2/10")
}

func TestRenderer_PercentageClampedAtTotal(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)
	r.Update(Event{Stage: StageEmbedding, Current: 12, Total: 10})
	assert.Contains(t, buf.String(), "100.0%")
}

func TestRenderer_ZeroTotalIsZeroPercent(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)
	r.Update(Event{Stage: StageUpserting, Current: 0, Total: 0})
	assert.Contains(t, buf.String(), "0.0%")
}

func TestDetectCI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "scanning", StageScanning.String())
	assert.Equal(t, "complete", StageComplete.String())
}
