/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package modlog drops log lines below the level of their module and writes the rest through zap.
package modlog

import (
	"github.com/nanderstabel/identity/pkg/common/log/internal/metadata"
	"github.com/nanderstabel/identity/spi/log"
)

type kind int

const (
	fatalLine kind = iota
	panicLine
	errorLine
	warnLine
	infoLine
	debugLine
)

//nolint:gochecknoglobals
var kindLevels = [...]log.Level{
	fatalLine: log.CRITICAL,
	panicLine: log.CRITICAL,
	errorLine: log.ERROR,
	warnLine:  log.WARNING,
	infoLine:  log.INFO,
	debugLine: log.DEBUG,
}

// Filter hands the lines of one module to next when the module level allows them. Fatal and
// panic lines are CRITICAL and always pass.
type Filter struct {
	next   log.Logger
	module string
}

// NewFilter returns the filter of module in front of next.
func NewFilter(next log.Logger, module string) *Filter {
	return &Filter{next: next, module: module}
}

func (f *Filter) write(k kind, format string, args []interface{}) {
	if !metadata.IsEnabledFor(f.module, kindLevels[k]) {
		return
	}

	switch k {
	case fatalLine:
		f.next.Fatalf(format, args...)
	case panicLine:
		f.next.Panicf(format, args...)
	case errorLine:
		f.next.Errorf(format, args...)
	case warnLine:
		f.next.Warnf(format, args...)
	case infoLine:
		f.next.Infof(format, args...)
	case debugLine:
		f.next.Debugf(format, args...)
	}
}

// Fatalf writes a fatal line.
func (f *Filter) Fatalf(format string, args ...interface{}) {
	f.write(fatalLine, format, args)
}

// Panicf writes a panic line.
func (f *Filter) Panicf(format string, args ...interface{}) {
	f.write(panicLine, format, args)
}

// Errorf writes an error line.
func (f *Filter) Errorf(format string, args ...interface{}) {
	f.write(errorLine, format, args)
}

// Warnf writes a warning line.
func (f *Filter) Warnf(format string, args ...interface{}) {
	f.write(warnLine, format, args)
}

// Infof writes an info line.
func (f *Filter) Infof(format string, args ...interface{}) {
	f.write(infoLine, format, args)
}

// Debugf writes a debug line.
func (f *Filter) Debugf(format string, args ...interface{}) {
	f.write(debugLine, format, args)
}
