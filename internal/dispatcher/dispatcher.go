// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatcher parses a JSON request array of the form
// `[name, arg1, arg2, ...]` into a job name and a parameter slice (C5).
//
// The original parser used a fixed token buffer and read offsets
// directly out of the source buffer via jsmn, mutating it in place to
// NUL-terminate substrings. Go has no comparable zero-copy trick worth
// keeping — encoding/json's streaming Decoder.Token() is the stdlib's
// own token-stream primitive and is used here instead, walking the
// array once left to right and never materializing more of the input
// than one token at a time.
package dispatcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/iondb-project/sensor-jobmanager/internal/sjmerr"
)

// defaultMaxTokens is used when Options.MaxTokens is zero.
const defaultMaxTokens = 128

// Options configures Dispatch.
type Options struct {
	// MaxTokens bounds the number of JSON tokens (each scalar, and
	// each opening/closing bracket, counts as one) Dispatch will read
	// before giving up with sjmerr.ErrUnsupportedJSONFormat, mirroring
	// jsmn's fixed token-buffer overflow in the original parser.
	MaxTokens int
}

// Dispatch parses raw as a `[name, arg...]` JSON array and returns the
// job name plus its arguments: strings pass through; JSON true/false
// become int 1/0 (not native Go bool — jobs see the same integer
// convention the original jobs did); JSON numbers
// are parsed as signed base-10 integers; JSON null becomes int 0,
// matching atoi's behavior on a non-numeric string in the original;
// nested arrays/objects are skipped whole without occupying a
// parameter slot.
func Dispatch(raw []byte, opts Options) (name string, params []any, err error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := nextToken(dec, &maxTokens)
	if err != nil {
		return "", nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return "", nil, sjmerr.ErrUnsupportedJSONFormat
	}

	tok, err = nextToken(dec, &maxTokens)
	if err != nil {
		return "", nil, err
	}
	name, ok := tok.(string)
	if !ok {
		return "", nil, sjmerr.ErrUnsupportedJSONFormat
	}

	for dec.More() {
		tok, err = nextToken(dec, &maxTokens)
		if err != nil {
			return "", nil, err
		}

		param, nested, perr := convertToken(tok)
		if perr != nil {
			return "", nil, perr
		}
		if nested {
			if err := skipValue(dec, &maxTokens); err != nil {
				return "", nil, err
			}
			continue
		}
		params = append(params, param)
	}

	// Consume the array's closing bracket.
	tok, err = nextToken(dec, &maxTokens)
	if err != nil {
		return "", nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != ']' {
		return "", nil, sjmerr.ErrUnsupportedJSONFormat
	}

	return name, params, nil
}

// convertToken applies the scalar marshaling rules to a single token.
// nested is true when tok opens a sub-array/sub-object the caller must
// skip instead of treating as a parameter value.
func convertToken(tok json.Token) (value any, nested bool, err error) {
	switch v := tok.(type) {
	case json.Delim:
		if v == '[' || v == '{' {
			return nil, true, nil
		}
		return nil, false, sjmerr.ErrUnsupportedJSONFormat
	case string:
		return v, false, nil
	case bool:
		if v {
			return 1, false, nil
		}
		return 0, false, nil
	case json.Number:
		n, convErr := strconv.ParseInt(v.String(), 10, 64)
		if convErr != nil {
			return nil, false, fmt.Errorf("%w: %v", sjmerr.ErrUnsupportedJSONFormat, convErr)
		}
		return int(n), false, nil
	case nil:
		// Matches atoi("null") == 0 in the original's fallback branch.
		return 0, false, nil
	default:
		return nil, false, sjmerr.ErrUnsupportedJSONFormat
	}
}

// skipValue consumes a nested array/object whose opening bracket has
// already been read, tracking bracket depth so it never allocates a
// parameter slot for anything inside.
func skipValue(dec *json.Decoder, remaining *int) error {
	depth := 1
	for depth > 0 {
		tok, err := nextToken(dec, remaining)
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return nil
}

// nextToken reads one token, enforcing the token budget and wrapping
// decode errors as sjmerr.ErrUnsupportedJSONFormat.
func nextToken(dec *json.Decoder, remaining *int) (json.Token, error) {
	if *remaining <= 0 {
		return nil, sjmerr.ErrUnsupportedJSONFormat
	}
	*remaining--

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sjmerr.ErrUnsupportedJSONFormat, err)
	}
	return tok, nil
}
