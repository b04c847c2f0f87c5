package sheet

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSheet_StartsHidden(t *testing.T) {
	s := New()

	assert.False(t, s.Visible())
	assert.Empty(t, s.Title())
	assert.Empty(t, s.Content())
}

func TestSheet_SetVisibleIsIdempotent(t *testing.T) {
	s := New()

	assert.True(t, s.SetVisible(true))
	assert.False(t, s.SetVisible(true), "double show is a no-op")
	assert.True(t, s.Visible())

	assert.True(t, s.SetVisible(false))
	assert.False(t, s.SetVisible(false), "hide when hidden is a no-op")
	assert.False(t, s.Visible())
}

func TestSheet_LastWriteWins(t *testing.T) {
	s := New()

	s.SetTitle("first")
	s.SetTitle("second")
	s.SetContent("a")
	s.SetContent("b")

	assert.Equal(t, "second", s.Title())
	assert.Equal(t, "b", s.Content())
}

func TestSheet_DismissFiresOnceWhenVisible(t *testing.T) {
	s := New()
	var calls int32
	s.OnDismiss(func() { atomic.AddInt32(&calls, 1) })

	assert.False(t, s.Dismiss(), "dismissing a hidden sheet does nothing")
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	s.SetVisible(true)
	assert.True(t, s.Dismiss())
	assert.False(t, s.Dismiss())

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, s.Visible())
}

func TestSheet_ProgrammaticHideDoesNotFireDismiss(t *testing.T) {
	s := New()
	fired := false
	s.OnDismiss(func() { fired = true })

	s.SetVisible(true)
	s.SetVisible(false)

	assert.False(t, fired)
}

func TestSheet_HandlerCanReenterSheet(t *testing.T) {
	s := New()
	s.OnDismiss(func() {
		s.SetTitle("dismissed")
		s.OnDismiss(nil)
	})

	s.SetVisible(true)
	s.Dismiss()

	assert.Equal(t, "dismissed", s.Title())
}

func TestSheet_ConcurrentDismissFiresOnce(t *testing.T) {
	s := New()
	var calls int32
	s.OnDismiss(func() { atomic.AddInt32(&calls, 1) })
	s.SetVisible(true)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dismiss()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
