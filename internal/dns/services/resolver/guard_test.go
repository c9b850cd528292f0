package resolver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardDetectsReentry(t *testing.T) {
	g := newGuard()
	release, err := g.enter("www.example.com|A|IN")
	require.NoError(t, err)

	_, err = g.enter("www.example.com|A|IN")
	assert.ErrorIs(t, err, ErrLoopDetected)

	release()
	release2, err := g.enter("www.example.com|A|IN")
	require.NoError(t, err)
	release2()
}

func TestGuardBoundsNestedDepth(t *testing.T) {
	g := newGuard()
	releases := make([]func(), 0, maxNestedDepth)
	for i := 0; i < maxNestedDepth; i++ {
		release, err := g.enter(fmt.Sprintf("ns%d.example.com|A|IN", i))
		require.NoError(t, err)
		releases = append(releases, release)
	}
	require.Equal(t, maxNestedDepth, g.depth())

	// One more distinct key is not a loop, but the stack is full.
	_, err := g.enter("deep.example.com|A|IN")
	assert.ErrorIs(t, err, ErrDepthLimit)

	// Popping a frame frees a slot.
	releases[len(releases)-1]()
	release, err := g.enter("deep.example.com|A|IN")
	require.NoError(t, err)
	release()
}
