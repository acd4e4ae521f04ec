package http11

import (
	"bytes"
	"sort"

	"github.com/yourusername/livewire/pkg/livewire/bytesutil"
)

// decodeInPlace percent-decodes b in place and returns the decoded prefix.
// "%XY" with two hex digits becomes one byte, '+' becomes space, everything
// else is copied through. A decode producing NUL is rejected so no consumer
// can be fooled by hidden truncation, as is a '%' without two hex digits.
//
// Allocation behavior: 0 allocs/op
func decodeInPlace(b []byte) ([]byte, error) {
	w := 0
	for r := 0; r < len(b); r++ {
		c := b[r]
		switch c {
		case '%':
			if r+2 >= len(b) || !bytesutil.IsHexDigit(b[r+1]) || !bytesutil.IsHexDigit(b[r+2]) {
				return nil, ErrBadRequest
			}
			c = bytesutil.HexDigit(b[r+1])<<4 | bytesutil.HexDigit(b[r+2])
			if c == 0 {
				return nil, ErrBadRequest
			}
			r += 2
		case '+':
			c = ' '
		}
		b[w] = c
		w++
	}
	return b[:w], nil
}

// parseKV tokenizes in on sep and splits each token on its first '='. A
// missing '=' yields an empty value. With decode set, keys and values are
// percent-decoded in place (queries and form bodies); cookies pass values
// through untouched. A key that is or decodes to empty poisons the whole
// array: parseKV returns an error and the caller discards everything.
//
// The result is sorted by key, stably, so among duplicate keys the first in
// wire order is found by lookup.
func parseKV(in []byte, sep byte, decode bool) ([]KV, error) {
	if len(in) == 0 {
		return nil, nil
	}

	var out []KV
	for len(in) > 0 {
		token := in
		if i := bytes.IndexByte(in, sep); i != -1 {
			token = in[:i]
			in = in[i+1:]
		} else {
			in = nil
		}
		if sep == ';' {
			// Cookie tokens arrive as "; name=value".
			token = bytesutil.SkipSpace(token)
		}

		key := token
		var value []byte
		if i := bytes.IndexByte(token, '='); i != -1 {
			key = token[:i]
			value = token[i+1:]
		}

		if decode {
			var err error
			if key, err = decodeInPlace(key); err != nil {
				return nil, err
			}
			if value, err = decodeInPlace(value); err != nil {
				return nil, err
			}
		}
		if len(key) == 0 {
			return nil, ErrBadRequest
		}
		out = append(out, KV{Key: key, Value: value})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key, out[j].Key) < 0
	})
	return out, nil
}

// kvFind binary-searches a sorted key/value array. Among duplicates the
// lowest index — the first occurrence in wire order after the stable sort —
// wins.
//
// Allocation behavior: 0 allocs/op
func kvFind(arr []KV, key []byte) ([]byte, bool) {
	i := sort.Search(len(arr), func(i int) bool {
		return bytes.Compare(arr[i].Key, key) >= 0
	})
	if i < len(arr) && bytes.Equal(arr[i].Key, key) {
		return arr[i].Value, true
	}
	return nil, false
}
