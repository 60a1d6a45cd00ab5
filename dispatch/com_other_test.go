//go:build !windows

package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"stereoctl.app/stereoctl/dispatch"
)

func TestCOMTransportUnavailable(t *testing.T) {
	c, err := dispatch.NewClient(dispatch.NewCOMTransport(dispatch.PlayerClassID))
	require.NoError(t, err)

	_, err = c.Connect(context.Background())

	var cerr *dispatch.ConnectError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, dispatch.ENotImpl, cerr.Code())
	require.NoError(t, c.Shutdown())
}
