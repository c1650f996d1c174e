package bootstrap

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	ran   atomic.Bool
	err   error
	delay time.Duration
}

func (a *fakeApp) Run(l *Launcher) error {
	if a.delay > 0 {
		time.Sleep(a.delay)
	}

	a.ran.Store(true)

	return a.err
}

func TestLauncher_RunsAllRegisteredApps(t *testing.T) {
	one := &fakeApp{}
	two := &fakeApp{}

	l := NewLauncher(RunApp("one", one), RunApp("two", two))
	l.Run()

	assert.True(t, one.ran.Load())
	assert.True(t, two.ran.Load())
}

func TestLauncher_WaitsForAllAppsBeforeReturning(t *testing.T) {
	slow := &fakeApp{delay: 50 * time.Millisecond}

	l := NewLauncher(RunApp("slow", slow))
	l.Run()

	assert.True(t, slow.ran.Load())
}

func TestLauncher_AppErrorDoesNotPanicOrBlockOthers(t *testing.T) {
	failing := &fakeApp{err: errors.New("boom")}
	ok := &fakeApp{}

	l := NewLauncher(RunApp("failing", failing), RunApp("ok", ok))
	require.NotPanics(t, l.Run)

	assert.True(t, failing.ran.Load())
	assert.True(t, ok.ran.Load())
}

func TestNewLauncher_DefaultsToNoneLogger(t *testing.T) {
	l := NewLauncher()
	require.NotNil(t, l.Logger)
	assert.NotPanics(t, func() { l.Logger.Info("hello") })
}
