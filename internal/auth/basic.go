// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// basicScheme is the literal prefix of an HTTP Basic authorization
// header: scheme name, exact case, single trailing space.
const basicScheme = "Basic "

// Credentials is an identifier/secret pair decoded from a Basic header.
type Credentials struct {
	Identifier string
	Secret     string
}

// ExtractBasicToken returns the base64 portion of an authorization
// header. The header must start with exactly "Basic "; anything else,
// including a missing header or a lowercase scheme, is not ok. An empty
// remainder after the scheme is a present-but-empty success; it fails
// later in the pipeline at the credential split.
func ExtractBasicToken(header string) (string, bool) {
	rest, found := strings.CutPrefix(header, basicScheme)
	if !found {
		return "", false
	}
	return rest, true
}

// DecodeBasicToken base64-decodes the token into UTF-8 text.
// Invalid base64 or non-UTF-8 payload bytes are not ok, never a panic
// or an error.
func DecodeBasicToken(token string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// SplitCredentials splits decoded text at the FIRST colon. The secret
// may itself contain colons; text without any colon is not ok.
func SplitCredentials(decoded string) (Credentials, bool) {
	identifier, secret, found := strings.Cut(decoded, ":")
	if !found {
		return Credentials{}, false
	}
	return Credentials{Identifier: identifier, Secret: secret}, true
}

// DecodeBasicHeader runs the full extract/decode/split pipeline.
// Any stage failing short-circuits to not ok.
func DecodeBasicHeader(header string) (Credentials, bool) {
	token, ok := ExtractBasicToken(header)
	if !ok {
		return Credentials{}, false
	}
	decoded, ok := DecodeBasicToken(token)
	if !ok {
		return Credentials{}, false
	}
	return SplitCredentials(decoded)
}
