// Package types provides core types used across pricescout.
// This package has ZERO dependencies on other pricescout packages to avoid
// circular imports. All other packages should import types from here.
package types
