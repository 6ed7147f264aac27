// Package codec declares model types for common Go values that ride the wire
// as strings: timestamps, durations, URLs, and raw bytes. Each type carries
// a registered conversion, so it decodes to the natural Go value and encodes
// back to the canonical string form.
package codec

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/goshape/goshape/convert"
	"github.com/goshape/goshape/modeltype"
)

var (
	timeOnce sync.Once
	timeType modeltype.Type

	durationOnce sync.Once
	durationType modeltype.Type

	urlOnce sync.Once
	urlType modeltype.Type

	base64Once sync.Once
	base64Type modeltype.Type
)

// Time is an RFC 3339 timestamp. It decodes to time.Time and encodes to the
// canonical UTC RFC3339Nano rendering.
func Time() modeltype.Type {
	timeOnce.Do(func() {
		t := modeltype.NewAlias("time.Time", modeltype.String())
		convert.Register(t, convert.Conversion{
			Target: modeltype.String(),
			Decode: func(v any) (any, error) {
				return parseRFC3339(v.(string))
			},
			Encode: func(v any) (any, error) {
				tv, ok := v.(time.Time)
				if !ok {
					return nil, fmt.Errorf("expected time.Time, got %T", v)
				}
				return tv.UTC().Format(time.RFC3339Nano), nil
			},
		})
		timeType = t
	})
	return timeType
}

// Duration is a Go duration string such as "1h30m". It decodes to
// time.Duration and encodes with time.Duration.String.
func Duration() modeltype.Type {
	durationOnce.Do(func() {
		t := modeltype.NewAlias("time.Duration", modeltype.String())
		convert.Register(t, convert.Conversion{
			Target: modeltype.String(),
			Decode: func(v any) (any, error) {
				return time.ParseDuration(v.(string))
			},
			Encode: func(v any) (any, error) {
				d, ok := v.(time.Duration)
				if !ok {
					return nil, fmt.Errorf("expected time.Duration, got %T", v)
				}
				return d.String(), nil
			},
		})
		durationType = t
	})
	return durationType
}

// URL is an absolute or relative URL string. It decodes to *url.URL.
func URL() modeltype.Type {
	urlOnce.Do(func() {
		t := modeltype.NewAlias("url.URL", modeltype.String())
		convert.Register(t, convert.Conversion{
			Target: modeltype.String(),
			Decode: func(v any) (any, error) {
				return url.Parse(v.(string))
			},
			Encode: func(v any) (any, error) {
				u, ok := v.(*url.URL)
				if !ok {
					return nil, fmt.Errorf("expected *url.URL, got %T", v)
				}
				return u.String(), nil
			},
		})
		urlType = t
	})
	return urlType
}

// Base64Bytes is standard-alphabet base64. It decodes to []byte.
func Base64Bytes() modeltype.Type {
	base64Once.Do(func() {
		t := modeltype.NewAlias("bytes.Base64", modeltype.String())
		convert.Register(t, convert.Conversion{
			Target: modeltype.String(),
			Decode: func(v any) (any, error) {
				return base64.StdEncoding.DecodeString(v.(string))
			},
			Encode: func(v any) (any, error) {
				b, ok := v.([]byte)
				if !ok {
					return nil, fmt.Errorf("expected []byte, got %T", v)
				}
				return base64.StdEncoding.EncodeToString(b), nil
			},
		})
		base64Type = t
	})
	return base64Type
}

// parseRFC3339 accepts RFC3339 with or without fractional seconds.
func parseRFC3339(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
