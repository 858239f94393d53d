/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireNoErrorInChannel(t *testing.T) {
	ch := make(chan error, 1)

	mt := &mockT{}
	RequireNoErrorInChannel(mt, ch)
	require.False(t, mt.failed, "empty channel")

	ch <- nil
	mt = &mockT{}
	RequireNoErrorInChannel(mt, ch)
	require.False(t, mt.failed, "nil error in channel")

	ch <- errors.New("admin server: address already in use")
	mt = &mockT{}
	RequireNoErrorInChannel(mt, ch)
	require.True(t, mt.failed, "error in channel")
}
