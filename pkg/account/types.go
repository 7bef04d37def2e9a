/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
)

// Generation counts updates of an integration or diff chain.
type Generation uint32

// TryIncrement returns the next generation.
func (g Generation) TryIncrement() (Generation, error) {
	if g == math.MaxUint32 {
		return g, ErrGenerationOverflow
	}

	return g + 1, nil
}

// KeyLocation identifies a key by method type, fragment and the generations it was created at.
type KeyLocation struct {
	Method                diddoc.MethodType `json:"method"`
	Fragment              string            `json:"fragment"`
	IntegrationGeneration Generation        `json:"integrationGeneration"`
	DiffGeneration        Generation        `json:"diffGeneration"`
}

// String returns the canonical form fragment:integration:diff.
func (l KeyLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Fragment, l.IntegrationGeneration, l.DiffGeneration)
}

// ParseKeyLocation parses the canonical form of a location of method type m.
func ParseKeyLocation(m diddoc.MethodType, s string) (KeyLocation, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" {
		return KeyLocation{}, fmt.Errorf("%w: key location %q", ErrInvalidFragment, s)
	}

	integration, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return KeyLocation{}, fmt.Errorf("key location %q: %w", s, err)
	}

	diff, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return KeyLocation{}, fmt.Errorf("key location %q: %w", s, err)
	}

	return KeyLocation{
		Method:                m,
		Fragment:              parts[0],
		IntegrationGeneration: Generation(integration),
		DiffGeneration:        Generation(diff),
	}, nil
}
