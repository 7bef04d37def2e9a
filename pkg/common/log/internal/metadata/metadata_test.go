/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanderstabel/identity/spi/log"
)

func TestLevels(t *testing.T) {
	const module = "metadata-test"

	require.Equal(t, log.INFO, GetLevel(module))
	require.True(t, IsEnabledFor(module, log.ERROR))
	require.False(t, IsEnabledFor(module, log.DEBUG))

	SetLevel(module, log.DEBUG)
	require.Equal(t, log.DEBUG, GetLevel(module))
	require.True(t, IsEnabledFor(module, log.DEBUG))

	SetLevel(module, log.CRITICAL)
	require.False(t, IsEnabledFor(module, log.ERROR))
}

func TestCallerInfo(t *testing.T) {
	const module = "metadata-caller"

	require.True(t, IsCallerInfoEnabled(module, log.INFO))

	HideCallerInfo(module, log.INFO)
	require.False(t, IsCallerInfoEnabled(module, log.INFO))

	ShowCallerInfo(module, log.INFO)
	require.True(t, IsCallerInfoEnabled(module, log.INFO))
}
