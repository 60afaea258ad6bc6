// Copyright 2024 The LC Sched Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package lcvalue

import "github.com/pkg/errors"

// Decode unwraps a length-prefixed attribute value. The first byte is a
// tag that callers have already dispatched on and is skipped here; the
// second byte is either a short-form length (0xxxxxxx, length in the
// low 7 bits) or a long-form length-of-length (1nnnnnnn, nnnnnnn in
// {1,2}) followed by that many big-endian length bytes. Any other
// length-of-length is rejected.
func Decode(raw []byte) ([]byte, error) {
	if len(raw) < 2 {
		return nil, errors.WithStack(ErrMalformed)
	}
	rest := raw[2:]
	lenByte := raw[1]

	var length int
	if lenByte&0x80 == 0 {
		length = int(lenByte)
	} else {
		nn := int(lenByte & 0x7f)
		switch nn {
		case 1:
			if len(rest) < 1 {
				return nil, errors.WithStack(ErrMalformed)
			}
			length = int(rest[0])
			rest = rest[1:]
		case 2:
			if len(rest) < 2 {
				return nil, errors.WithStack(ErrMalformed)
			}
			length = int(rest[0])<<8 | int(rest[1])
			rest = rest[2:]
		default:
			return nil, errors.WithStack(ErrMalformed)
		}
	}

	if length < 0 || len(rest) < length {
		return nil, errors.WithStack(ErrMalformed)
	}
	return rest[:length], nil
}

// DecodeString decodes raw into a payload and additionally rejects
// embedded NUL bytes, returning a clean Go string suitable for regexp
// validation (the original C implementation required a NUL-terminated
// copy for the same reason).
func DecodeString(raw []byte) (string, error) {
	payload, err := Decode(raw)
	if err != nil {
		return "", err
	}
	for _, b := range payload {
		if b == 0 {
			return "", errors.WithStack(ErrEmbeddedNUL)
		}
	}
	return string(payload), nil
}

// IdentifierLen returns the length of the leading run of identifier
// characters (ASCII letters, digits, '-', '_') in s.
func IdentifierLen(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			n++
		default:
			return n
		}
	}
	return n
}

// Kind classifies the word immediately following an attribute-program
// cursor.
type Kind int

const (
	// KindNone means there is no next word, or it was not classifiable
	// (the AP will never advance or fire again).
	KindNone Kind = iota
	// KindTimer is a `event@timestamp` word.
	KindTimer
	// KindWait is a `lcname?event` word.
	KindWait
	// KindValue is a `var=value` word.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindTimer:
		return "timer"
	case KindWait:
		return "wait"
	case KindValue:
		return "value"
	default:
		return "none"
	}
}

// ClassifyAt returns the Kind of the word beginning at offset in s, by
// inspecting the byte immediately following that word's leading
// identifier.
func ClassifyAt(s string, offset int) Kind {
	if offset < 0 || offset >= len(s) {
		return KindNone
	}
	word := s[offset:]
	idLen := IdentifierLen(word)
	if idLen >= len(word) {
		return KindNone
	}
	switch word[idLen] {
	case '@':
		return KindTimer
	case '?':
		return KindWait
	case '=':
		return KindValue
	default:
		return KindNone
	}
}
