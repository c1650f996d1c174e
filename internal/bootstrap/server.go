package bootstrap

import (
	"github.com/gofiber/fiber/v2"
)

// Server wraps the Fiber app serving the invocation contract.
type Server struct {
	app           *fiber.App
	serverAddress string
}

// NewServer builds a Server listening on serverAddress, defaulting to
// ":3003" when empty.
func NewServer(serverAddress string, app *fiber.App) *Server {
	if serverAddress == "" {
		serverAddress = ":3003"
	}

	return &Server{app: app, serverAddress: serverAddress}
}

// ServerAddress returns the configured listen address.
func (s *Server) ServerAddress() string {
	return s.serverAddress
}

// Run starts the Fiber app and blocks until it stops listening.
func (s *Server) Run(l *Launcher) error {
	l.Logger.Infof("server: listening on %s", s.serverAddress)

	return s.app.Listen(s.serverAddress)
}
