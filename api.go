package goshape

import (
	"context"

	"github.com/goshape/goshape/modeltype"
)

// DecodeFunc decodes a generic wire value into the native representation of
// the type it was compiled for. It is safe for concurrent use.
type DecodeFunc func(ctx context.Context, v any) (any, error)

// EncodeFunc encodes a native value into its generic wire representation. It
// is safe for concurrent use.
type EncodeFunc func(ctx context.Context, v any) (any, error)

// CompileDecoder compiles t into a decoder. Compilation walks the whole type
// graph once; configuration problems surface here as *ConfigError, never
// from the returned function. Compiled nodes are cached process-wide, so
// repeated compilation of the same type is cheap.
func CompileDecoder(t modeltype.Type, opts Options) (DecodeFunc, error) {
	m, err := compileTopDecode(t, opts.Conversions)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, v any) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dc := &decodeContext{
			allowUnknown:    opts.AllowUnknown,
			coerce:          opts.Coerce,
			fallbackDefault: opts.FallbackToDefaultOnError,
		}
		return m(dc, v)
	}, nil
}

// CompileEncoder compiles t into an encoder. See CompileDecoder.
func CompileEncoder(t modeltype.Type, opts Options) (EncodeFunc, error) {
	m, err := compileTopEncode(t, opts.Conversions)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, v any) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return m(&encodeContext{}, v)
	}, nil
}

// Decode compiles t and decodes v in one call. Prefer CompileDecoder when
// decoding the same type repeatedly.
func Decode(ctx context.Context, t modeltype.Type, v any, opts Options) (any, error) {
	d, err := CompileDecoder(t, opts)
	if err != nil {
		return nil, err
	}
	return d(ctx, v)
}

// Encode compiles t and encodes v in one call. Prefer CompileEncoder when
// encoding the same type repeatedly.
func Encode(ctx context.Context, t modeltype.Type, v any, opts Options) (any, error) {
	e, err := CompileEncoder(t, opts)
	if err != nil {
		return nil, err
	}
	return e(ctx, v)
}
