// Package errors provides the classified error primitives used across cmsbuild.
//
// Every failure that reaches the CLI carries a category (config, image,
// content, link, reducer, ...) and a severity. The severity decides whether the
// build stops: fatal and error severities abort, warnings are logged and the
// build continues with degraded output.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryImage, "derivative encode failed").
//		Fatal().
//		WithContext("source", relPath).
//		WithContext("width", 420).
//		Build()
package errors
