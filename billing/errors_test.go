package billing

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	err := NewError(ErrorCodeStoreProblem, "vendor said no")
	require.Equal(t, ErrorCodeStoreProblem, CodeOf(err))

	// The code survives wrapping.
	wrapped := errors.Wrap(err, "query failed")
	require.Equal(t, ErrorCodeStoreProblem, CodeOf(wrapped))

	require.Equal(t, ErrorCodeUnknown, CodeOf(io.EOF))
	require.Equal(t, ErrorCodeUnknown, CodeOf(nil))
}

func TestError_Unwrap(t *testing.T) {
	underlying := io.ErrUnexpectedEOF
	err := WrapError(ErrorCodeNetwork, "backend request failed", underlying)

	require.ErrorIs(t, err, underlying)
	require.Contains(t, err.Error(), "network_error")
	require.Contains(t, err.Error(), "backend request failed")
}
