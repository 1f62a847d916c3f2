package anchor

import (
	"fmt"
	"testing"

	"github.com/soyeahso/teo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screenWithID(id string) domain.Screen {
	return domain.Screen{ScreenID: id, Title: id, Body: "body of " + id}
}

func TestNavigator_ShowPushesCurrent(t *testing.T) {
	nav := NewNavigator(10)
	sess := &domain.Session{}

	nav.Show(sess, screenWithID("a"))
	require.NotNil(t, sess.Current)
	assert.Equal(t, "a", sess.Current.ScreenID)
	assert.Empty(t, sess.History, "first screen has nothing to push")

	nav.Show(sess, screenWithID("b"))
	assert.Equal(t, "b", sess.Current.ScreenID)
	require.Len(t, sess.History, 1)
	assert.Equal(t, "a", sess.History[0].ScreenID)
}

func TestNavigator_HistoryBounded(t *testing.T) {
	nav := NewNavigator(10)
	sess := &domain.Session{}

	for i := 0; i < 15; i++ {
		nav.Show(sess, screenWithID(fmt.Sprintf("s%d", i)))
	}

	assert.Len(t, sess.History, 10)
	// s0..s3 fell off the bottom; the oldest survivor is s4.
	assert.Equal(t, "s4", sess.History[0].ScreenID)
	assert.Equal(t, "s13", sess.History[9].ScreenID)
	assert.Equal(t, "s14", sess.Current.ScreenID)
}

func TestNavigator_BackWalk(t *testing.T) {
	nav := NewNavigator(10)
	sess := &domain.Session{}

	nav.Show(sess, screenWithID("a"))
	nav.Show(sess, screenWithID("b"))
	nav.Show(sess, screenWithID("c"))

	prev := nav.Back(sess)
	require.NotNil(t, prev)
	assert.Equal(t, "b", prev.ScreenID)
	assert.Equal(t, "b", sess.Current.ScreenID)

	prev = nav.Back(sess)
	require.NotNil(t, prev)
	assert.Equal(t, "a", prev.ScreenID)

	// Stack exhausted: Back reports nil and leaves the session alone.
	assert.Nil(t, nav.Back(sess))
	assert.Equal(t, "a", sess.Current.ScreenID)
}

func TestNavigator_BackDoesNotRepush(t *testing.T) {
	nav := NewNavigator(10)
	sess := &domain.Session{}

	nav.Show(sess, screenWithID("a"))
	nav.Show(sess, screenWithID("b"))

	nav.Back(sess)
	// Going back must strictly shrink the stack, otherwise alternating
	// back presses would bounce between two screens forever.
	assert.Empty(t, sess.History)
}

func TestNavigator_PeekDoesNotMutate(t *testing.T) {
	nav := NewNavigator(10)
	sess := &domain.Session{}

	nav.Show(sess, screenWithID("a"))
	nav.Show(sess, screenWithID("b"))

	peeked := nav.Peek(sess)
	require.NotNil(t, peeked)
	assert.Equal(t, "a", peeked.ScreenID)
	assert.Equal(t, "b", sess.Current.ScreenID)
	assert.Len(t, sess.History, 1)
}

func TestNavigator_ResetToRoot(t *testing.T) {
	nav := NewNavigator(10)
	sess := &domain.Session{}

	nav.Show(sess, screenWithID("a"))
	nav.Show(sess, screenWithID("b"))
	nav.ResetToRoot(sess, screenWithID("root"))

	assert.Empty(t, sess.History)
	assert.Equal(t, "root", sess.Current.ScreenID)
}
