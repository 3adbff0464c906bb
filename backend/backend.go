// Package backend contains interfaces and implementations to store and
// retrieve data from the odb
package backend

import (
	"golang.org/x/xerrors"

	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
)

// OidWalkFunc represents a function that will be applied to every oid
// found by a Walk*ObjectIDs method
type OidWalkFunc = func(oid ginternals.Oid) error

// Backend represents an object that can store and retrieve data
// from and to the odb
type Backend interface {
	// Close frees the resources
	Close() error

	// Init initializes a repository
	Init() error

	// Reference returns a stored reference from its name
	Reference(name string) (*ginternals.Reference, error)
	// WriteReference writes the given reference in the db. If the
	// reference already exists it will be overwritten
	WriteReference(ref *ginternals.Reference) error
	// WriteReferenceSafe writes the given reference in the db.
	// ErrRefExists is returned if the reference already exists
	WriteReferenceSafe(ref *ginternals.Reference) error
	// WalkReferences runs the provided method on all the references
	WalkReferences(f RefWalkFunc) error

	// Object returns the object that has the given oid
	Object(ginternals.Oid) (*object.Object, error)
	// HasObject returns whether an object exists in the odb
	HasObject(ginternals.Oid) (bool, error)
	// WriteObject adds an object to the odb
	WriteObject(*object.Object) (ginternals.Oid, error)
	// WalkPackedObjectIDs runs the provided method on all the oids
	// stored in packfiles
	WalkPackedObjectIDs(f OidWalkFunc) error
	// WalkLooseObjectIDs runs the provided method on all the loose oids
	WalkLooseObjectIDs(f OidWalkFunc) error
}

// RefWalkFunc represents a function that will be applied on all
// references found by WalkReferences
type RefWalkFunc = func(ref *ginternals.Reference) error

// WalkStop is a sentinel error a RefWalkFunc can return to tell
// WalkReferences to stop. The fsbackend loose-object walk uses its own
// fsbackend.OidWalkStop sentinel instead.
var WalkStop = xerrors.New("stop walking")
