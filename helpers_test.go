package goshape

import "errors"

func asConfigError(err error, target **ConfigError) bool {
	return errors.As(err, target)
}
