// Package output provides adapters for writing application output.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// Writer renders a RunOutcome for the operator. By default it writes to stdout.
type Writer struct {
	out io.Writer
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter() *Writer {
	return &Writer{out: os.Stdout}
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
// This is useful for testing.
func NewWriterWithOutput(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteOutcome writes the run outcome: a status line naming the stage
// reached, followed by the next-step guidance.
func (w *Writer) WriteOutcome(outcome *domain.RunOutcome) error {
	status := "failed"
	if outcome.Success {
		status = "succeeded"
	}

	if _, err := fmt.Fprintf(w.out, "Run %s (stage: %s)\n", status, outcome.Stage); err != nil {
		return err
	}
	if outcome.Mode != "" {
		if _, err := fmt.Fprintf(w.out, "Dependency mode: %s\n", outcome.Mode); err != nil {
			return err
		}
	}
	if outcome.DeploymentUUID != "" {
		if _, err := fmt.Fprintf(w.out, "Deployment: %s\n", outcome.DeploymentUUID); err != nil {
			return err
		}
	}
	if outcome.NextSteps != "" {
		if _, err := fmt.Fprintf(w.out, "\n%s\n", outcome.NextSteps); err != nil {
			return err
		}
	}
	return nil
}
