package commands

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ujanalytics/costctl/internal/errors"
)

func TestFormatError_RendersGuidance(t *testing.T) {
	err := errors.New(errors.TypeState, "no saved state at /tmp/state.json").
		WithSolutions(
			"Run 'costctl stop' first to save the running configuration",
			"Restore a snapshot from S3 with 'costctl backups restore'",
		)

	out := formatError(err)

	assert.Contains(t, out, "Error: no saved state at /tmp/state.json")
	assert.Contains(t, out, "Suggestions:")
	assert.Contains(t, out, "Run 'costctl stop' first")
}

func TestFormatError_WrappedTypedErrorStillRendersGuidance(t *testing.T) {
	cause := errors.New(errors.TypePermission, "access denied").
		WithSolutions("Check the IAM permissions attached to the active credentials")

	out := formatError(fmt.Errorf("stop failed: %w", cause))

	assert.Contains(t, out, "Suggestions:")
	assert.Contains(t, out, "IAM permissions")
}

func TestFormatError_PlainErrorHasNoSuggestions(t *testing.T) {
	out := formatError(stderrors.New("boom"))

	assert.Equal(t, "Error: boom\n", out)
}
