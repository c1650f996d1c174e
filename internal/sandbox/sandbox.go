// Package sandbox is the sandbox provider abstraction: a remote Linux-like
// environment exposed through one contract, with pluggable provider
// implementations selected by configuration.
package sandbox

import "context"

// CreateParams configures a new sandbox.
type CreateParams struct {
	Provider  string
	Template  string
	TimeoutMS int
	Env       map[string]string
}

// WriteFile is one entry of a batch file upload.
type WriteFile struct {
	Path     string
	Content  string
	IsBinary bool
}

// WriteResult is one per-file outcome of WriteFiles.
type WriteResult struct {
	Path    string
	Success bool
	Error   string
}

// WriteFilesResult is the aggregate outcome: success is the conjunction of
// every per-file result.
type WriteFilesResult struct {
	Success bool
	Results []WriteResult
}

// ExecOptions configures ExecuteCommand.
type ExecOptions struct {
	TimeoutMS int
	OnStderr  func(chunk string)
}

// ExecResult is the outcome of a command execution.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// TerminateOptions configures Terminate.
type TerminateOptions struct {
	TimeoutMS int
}

// Provider is the contract every sandbox implementation satisfies. The
// core depends only on this interface — it never touches a provider SDK
// directly.
type Provider interface {
	Create(ctx context.Context, params CreateParams) (id string, err error)
	Connect(ctx context.Context, id string) error
	WriteFiles(ctx context.Context, id string, files []WriteFile) (WriteFilesResult, error)
	ExecuteCommand(ctx context.Context, id, cmd string, opts ExecOptions) (ExecResult, error)
	Terminate(ctx context.Context, id string, opts TerminateOptions) (bool, error)
}

// mockSandboxIDPrefix marks sandbox ids that never require termination.
const mockSandboxIDPrefix = "sandbox-"

// IsMock reports whether id belongs to a mock/local sandbox that step 6
// should not attempt to terminate.
func IsMock(id string) bool {
	return len(id) >= len(mockSandboxIDPrefix) && id[:len(mockSandboxIDPrefix)] == mockSandboxIDPrefix
}
