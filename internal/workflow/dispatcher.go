package workflow

import "fmt"

// WorkerName derives the dispatch-namespace worker name for a project:
// "<projectId>-worker".
func WorkerName(projectID string) string {
	return projectID + "-worker"
}

// WorkerURL computes a deployed worker's public URL:
// https://<workerName>.<dispatcherDomain>.
func WorkerURL(workerName, dispatcherDomain string) string {
	return fmt.Sprintf("https://%s.%s", workerName, dispatcherDomain)
}
