package pmap

import "errors"

// ErrClosed is returned by Mapping methods once Close has run.
var ErrClosed = errors.New("pmap: mapping is closed")
