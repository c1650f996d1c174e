package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerName(t *testing.T) {
	assert.Equal(t, "proj-123-worker", WorkerName("proj-123"))
}

func TestWorkerURL(t *testing.T) {
	assert.Equal(t, "https://proj-123-worker.libra.sh", WorkerURL("proj-123-worker", "libra.sh"))
}
