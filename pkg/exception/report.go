package exception

import "errors"

var ErrNilAccountGetter = errors.New("report: account getter not injected")
