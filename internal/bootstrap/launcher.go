// Package bootstrap wires the deploy-engine's adapters and the deployment
// workflow into a runnable process.
package bootstrap

import (
	"sync"

	"github.com/libra-dev/deploy-engine/internal/logging"
)

// App is a component the Launcher runs for the process lifetime —
// typically an HTTP server.
type App interface {
	Run(l *Launcher) error
}

// LauncherOption configures a Launcher at construction.
type LauncherOption func(l *Launcher)

// WithLogger attaches the logger every registered App logs through.
func WithLogger(logger logging.Logger) LauncherOption {
	return func(l *Launcher) {
		l.Logger = logger
	}
}

// RunApp registers app under name to be started when the Launcher runs.
//
// This package builds its own Launcher rather than importing
// lib-commons/v2/commons.Launcher (see DESIGN.md for the rationale).
func RunApp(name string, app App) LauncherOption {
	return func(l *Launcher) {
		l.Add(name, app)
	}
}

// Launcher runs every registered App concurrently and blocks until all of
// them return.
type Launcher struct {
	Logger logging.Logger
	apps   map[string]App
	wg     *sync.WaitGroup
}

// NewLauncher builds a Launcher with the given options applied.
func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{
		apps: make(map[string]App),
		wg:   new(sync.WaitGroup),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.Logger == nil {
		l.Logger = logging.NoneLogger{}
	}

	return l
}

// Add registers app under name.
func (l *Launcher) Add(name string, app App) *Launcher {
	l.apps[name] = app
	return l
}

// Run starts every registered App in its own goroutine and blocks until
// all of them return.
func (l *Launcher) Run() {
	l.wg.Add(len(l.apps))

	l.Logger.Infof("launcher: starting %d app(s)", len(l.apps))

	for name, app := range l.apps {
		go func(name string, app App) {
			defer l.wg.Done()

			l.Logger.Infof("launcher: app %q starting", name)

			if err := app.Run(l); err != nil {
				l.Logger.Errorf("launcher: app %q exited with error: %v", name, err)
				return
			}

			l.Logger.Infof("launcher: app %q finished", name)
		}(name, app)
	}

	l.wg.Wait()

	l.Logger.Info("launcher: terminated")
}
