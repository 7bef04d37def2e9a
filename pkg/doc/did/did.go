/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	idchar = `a-zA-Z0-9-_\.%`
	scheme = "did"
)

var (
	didRegex = regexp.MustCompile(fmt.Sprintf(`^did:[a-z0-9]+:(:+|[:%s]+)*[%s]+$`, idchar, idchar))

	// ErrInvalidDID is returned when a string does not conform to the generic DID syntax.
	ErrInvalidDID = errors.New("invalid did")
	// ErrInvalidDIDURL is returned when a string is not a valid DID URL.
	ErrInvalidDIDURL = errors.New("invalid did url")
)

// DID is parsed according to the generic syntax: https://w3c.github.io/did-core/#generic-did-syntax
type DID struct {
	Scheme           string // Scheme is always "did"
	Method           string // Method is the specific DID methods
	MethodSpecificID string // MethodSpecificID is the unique ID computed or assigned by the DID method
}

// String returns a string representation of this DID.
func (d DID) String() string {
	if d.Method == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s:%s", scheme, d.Method, d.MethodSpecificID)
}

// IsZero reports whether d is the empty DID.
func (d DID) IsZero() bool {
	return d.Method == "" && d.MethodSpecificID == ""
}

// Parse parses the string according to the generic DID syntax.
// See https://w3c.github.io/did-core/#generic-did-syntax.
func Parse(did string) (*DID, error) {
	if !didRegex.MatchString(did) {
		return nil, fmt.Errorf("%w: %s. Make sure it conforms to the generic DID syntax", ErrInvalidDID, did)
	}

	parts := strings.SplitN(did, ":", 3)

	return &DID{
		Scheme:           scheme,
		Method:           parts[1],
		MethodSpecificID: parts[2],
	}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (d DID) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*d = *parsed

	return nil
}

// URL is a DID URL: a DID followed by optional path, query and fragment components.
type URL struct {
	DID      DID
	Path     string // includes the leading '/'
	Query    string // without the leading '?'
	Fragment string // without the leading '#'
}

// ParseURL parses a DID URL.
func ParseURL(u string) (*URL, error) {
	end := strings.IndexAny(u, "/?#")
	if end < 0 {
		end = len(u)
	}

	d, err := Parse(u[:end])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDIDURL, err.Error())
	}

	result := &URL{DID: *d}
	rest := u[end:]

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		result.Fragment = rest[i+1:]
		rest = rest[:i]
	}

	if i := strings.IndexByte(rest, '?'); i >= 0 {
		result.Query = rest[i+1:]
		rest = rest[:i]
	}

	result.Path = rest

	if strings.ContainsAny(result.Fragment, "#") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDIDURL, u)
	}

	return result, nil
}

// NewURL creates a DID URL for d.
func NewURL(d DID) *URL {
	return &URL{DID: d}
}

// String returns the DID URL.
func (u URL) String() string {
	var sb strings.Builder

	sb.WriteString(u.DID.String())
	sb.WriteString(u.Path)

	if u.Query != "" {
		sb.WriteByte('?')
		sb.WriteString(u.Query)
	}

	if u.Fragment != "" {
		sb.WriteByte('#')
		sb.WriteString(u.Fragment)
	}

	return sb.String()
}

// Join returns a copy of u with its fragment replaced by fragment. A leading '#' is stripped.
func (u URL) Join(fragment string) (*URL, error) {
	fragment = strings.TrimPrefix(fragment, "#")
	if fragment == "" || strings.ContainsAny(fragment, "#/?") {
		return nil, fmt.Errorf("%w: bad fragment %q", ErrInvalidDIDURL, fragment)
	}

	u.Fragment = fragment

	return &u, nil
}

// MarshalText implements encoding.TextMarshaler.
func (u URL) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *URL) UnmarshalText(text []byte) error {
	parsed, err := ParseURL(string(text))
	if err != nil {
		return err
	}

	*u = *parsed

	return nil
}

// Matches reports whether u is identified by query, which is either a full DID URL or a
// fragment ("#key-1" or "key-1").
func (u URL) Matches(query string) bool {
	if strings.HasPrefix(query, scheme+":") {
		return u.String() == query
	}

	return u.Fragment != "" && u.Fragment == strings.TrimPrefix(query, "#")
}
