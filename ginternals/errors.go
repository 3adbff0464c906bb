package ginternals

import "golang.org/x/xerrors"

// ErrObjectNotFound is returned when a git object cannot be found in
// the object store
var ErrObjectNotFound = xerrors.New("object not found")

// ErrRefNotFound is returned when a reference cannot be resolved
var ErrRefNotFound = xerrors.New("reference not found")

// ErrRefNameInvalid is returned when a reference name doesn't follow
// git's naming rules
var ErrRefNameInvalid = xerrors.New("invalid reference name")
