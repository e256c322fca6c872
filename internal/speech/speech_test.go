//go:build !windows

package speech

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewCommand_Default(t *testing.T) {
	c := NewCommand("")
	assert.Equal(t, DefaultCommand(), c.name)
}

func TestCommand_StopKillsPlayback(t *testing.T) {
	// sleep stands in for a long utterance; the text becomes its duration argument.
	c := NewCommand("sleep")
	c.Speak("30")
	assert.True(t, c.Speaking())

	start := time.Now()
	c.Stop()
	assert.False(t, c.Speaking())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommand_StopWithoutPlayback(t *testing.T) {
	c := NewCommand("true")
	c.Stop()
	assert.False(t, c.Speaking())
}

func TestCommand_SpeakEmptyIsIgnored(t *testing.T) {
	c := NewCommand("sleep")
	c.Speak("")
	assert.False(t, c.Speaking())
}

func TestCommand_MissingProgram(t *testing.T) {
	c := NewCommand("gochat-no-such-tts-binary")
	c.Speak("hello")
	assert.False(t, c.Speaking())
}

func TestCommand_FinishesOnItsOwn(t *testing.T) {
	c := NewCommand("true")
	c.Speak("hello")
	assert.Eventually(t, func() bool { return !c.Speaking() }, 5*time.Second, 10*time.Millisecond)
}

func TestCommand_ConcurrentSpeakKeepsOnePlayback(t *testing.T) {
	c := NewCommand("sleep")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Speak("30")
		}()
	}
	wg.Wait()
	assert.True(t, c.Speaking())

	start := time.Now()
	c.Stop()
	assert.False(t, c.Speaking())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNoop(t *testing.T) {
	var s Speaker = Noop{}
	s.Speak("x")
	s.Stop()
}
