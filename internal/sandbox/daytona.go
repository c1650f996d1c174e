package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/libra-dev/deploy-engine/internal/apperr"
)

// DaytonaProvider talks to a Daytona-compatible workspace API. Daytona
// models a sandbox as a "workspace" and batches file writes in a single
// request rather than one call per file, unlike E2BProvider.
type DaytonaProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewDaytonaProvider builds a client against baseURL, authenticating with apiKey.
func NewDaytonaProvider(baseURL, apiKey string) *DaytonaProvider {
	return &DaytonaProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *DaytonaProvider) Create(ctx context.Context, params CreateParams) (string, error) {
	var resp struct {
		WorkspaceID string `json:"workspaceId"`
	}

	body := map[string]any{
		"image":   params.Template,
		"timeout": params.TimeoutMS,
		"env":     params.Env,
	}

	if err := p.doJSON(ctx, http.MethodPost, "/workspaces", body, &resp); err != nil {
		return "", err
	}

	return resp.WorkspaceID, nil
}

func (p *DaytonaProvider) Connect(ctx context.Context, id string) error {
	return p.doJSON(ctx, http.MethodGet, "/workspaces/"+id, nil, nil)
}

func (p *DaytonaProvider) WriteFiles(ctx context.Context, id string, files []WriteFile) (WriteFilesResult, error) {
	type fileEntry struct {
		Path     string `json:"path"`
		Content  string `json:"content"`
		IsBinary bool   `json:"isBinary"`
	}

	entries := make([]fileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, fileEntry{Path: f.Path, Content: f.Content, IsBinary: f.IsBinary})
	}

	var resp struct {
		Results []struct {
			Path    string `json:"path"`
			OK      bool   `json:"ok"`
			Message string `json:"message"`
		} `json:"results"`
	}

	if err := p.doJSON(ctx, http.MethodPost, "/workspaces/"+id+"/files/batch", map[string]any{
		"files": entries,
	}, &resp); err != nil {
		return WriteFilesResult{}, err
	}

	results := make([]WriteResult, 0, len(resp.Results))
	success := true

	for _, r := range resp.Results {
		results = append(results, WriteResult{Path: r.Path, Success: r.OK, Error: r.Message})
		if !r.OK {
			success = false
		}
	}

	return WriteFilesResult{Success: success, Results: results}, nil
}

func (p *DaytonaProvider) ExecuteCommand(ctx context.Context, id, cmd string, opts ExecOptions) (ExecResult, error) {
	var resp struct {
		ExitCode int    `json:"exitCode"`
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
	}

	err := p.doJSON(ctx, http.MethodPost, "/workspaces/"+id+"/exec", map[string]any{
		"command": cmd,
		"timeout": opts.TimeoutMS,
	}, &resp)
	if err != nil {
		return ExecResult{}, err
	}

	if opts.OnStderr != nil && resp.Stderr != "" {
		opts.OnStderr(resp.Stderr)
	}

	return ExecResult{ExitCode: resp.ExitCode, Stdout: resp.Stdout, Stderr: resp.Stderr}, nil
}

func (p *DaytonaProvider) Terminate(ctx context.Context, id string, opts TerminateOptions) (bool, error) {
	if err := p.doJSON(ctx, http.MethodDelete, "/workspaces/"+id, nil, nil); err != nil {
		return false, err
	}

	return true, nil
}

func (p *DaytonaProvider) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("daytona: marshal request: %w", err)
		}

		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("daytona: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return apperr.ProviderUnavailableError{Provider: "daytona", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return apperr.ProviderUnavailableError{Provider: "daytona", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("daytona: request %s %s failed: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
