/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metadata keeps the per-module logging levels and caller info switches.
package metadata

import (
	"sync"

	"github.com/nanderstabel/identity/spi/log"
)

const defaultModule = ""

//nolint:gochecknoglobals
var (
	rwmutex    = &sync.RWMutex{}
	levels     = map[string]log.Level{}
	callerInfo = map[callerInfoKey]bool{}
)

type callerInfoKey struct {
	module string
	level  log.Level
}

// SetLevel sets the log level for the given module. An empty module sets the default level.
func SetLevel(module string, level log.Level) {
	rwmutex.Lock()
	defer rwmutex.Unlock()

	levels[module] = level
}

// GetLevel returns the log level for the given module, falling back to the default level (INFO).
func GetLevel(module string) log.Level {
	rwmutex.RLock()
	defer rwmutex.RUnlock()

	if level, ok := levels[module]; ok {
		return level
	}

	if level, ok := levels[defaultModule]; ok {
		return level
	}

	return log.INFO
}

// IsEnabledFor returns true if the module's level is at least level.
func IsEnabledFor(module string, level log.Level) bool {
	return level <= GetLevel(module)
}

// ShowCallerInfo enables caller info for the module and level.
func ShowCallerInfo(module string, level log.Level) {
	rwmutex.Lock()
	defer rwmutex.Unlock()

	callerInfo[callerInfoKey{module, level}] = true
}

// HideCallerInfo disables caller info for the module and level.
func HideCallerInfo(module string, level log.Level) {
	rwmutex.Lock()
	defer rwmutex.Unlock()

	callerInfo[callerInfoKey{module, level}] = false
}

// IsCallerInfoEnabled reports whether caller info is shown for the module and level. Defaults to true.
func IsCallerInfoEnabled(module string, level log.Level) bool {
	rwmutex.RLock()
	defer rwmutex.RUnlock()

	enabled, ok := callerInfo[callerInfoKey{module, level}]
	if !ok {
		return true
	}

	return enabled
}
