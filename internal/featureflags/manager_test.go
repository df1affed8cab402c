package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_OnOff(t *testing.T) {
	m := NewManager("invite_only=on, media_urls=off, a=true, b=0")

	assert.True(t, m.Enabled(InviteOnly, 0))
	assert.True(t, m.Enabled("INVITE_ONLY", 7))
	assert.False(t, m.Enabled("media_urls", 7))
	assert.True(t, m.Enabled("a", 1))
	assert.False(t, m.Enabled("b", 1))
	assert.False(t, m.Enabled("missing", 1))
}

func TestEnabled_Rollout(t *testing.T) {
	m := NewManager("all=100%,none=0%,canary=30%,broken=x%")

	assert.True(t, m.Enabled("all", 0))
	assert.False(t, m.Enabled("none", 5))
	assert.False(t, m.Enabled("broken", 5))
	assert.False(t, m.Enabled("canary", 0), "rollouts exclude anonymous callers")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42))
	}

	on := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			on++
		}
	}
	assert.InDelta(t, 300, on, 100)
}

func TestSnapshot(t *testing.T) {
	m := NewManager(" junk ,x=on, y = 100% ,z=off,=on")
	assert.Equal(t, map[string]bool{"x": true, "y": true, "z": false}, m.Snapshot(3))

	var nilManager *Manager
	assert.False(t, nilManager.Enabled(InviteOnly, 1))
	assert.Empty(t, nilManager.Snapshot(1))
}
