package errs

import "errors"

var ErrNotFound = errors.New("not found")

var ErrInvalidAsset = errors.New("invalid asset")

var ErrInvalidInterval = errors.New("invalid refresh interval")

var ErrRateLimited = errors.New("rate limited")

var ErrFetchFailed = errors.New("fetch failed")

var ErrInternal = errors.New("internal error")
