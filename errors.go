package smpa

import (
	"errors"

	"github.com/nguyengg/smpa/format"
)

var (
	// ErrBadArchive reports a structural violation: wrong file or entry
	// magic, inconsistent sizes, or a payload stream that misbehaves.
	ErrBadArchive = format.ErrBadArchive

	// ErrBadData reports corrupt compressed payload content, distinct from
	// structural damage.
	ErrBadData = format.ErrBadData

	// ErrPathTooLong reports an entry path above format.MaxPathLen UTF-16
	// code units.
	ErrPathTooLong = format.ErrPathTooLong

	// ErrCancelled is returned when a progress callback requests an abort.
	// The in-flight entry's partial output is cleaned up before it
	// propagates; entries already committed stay committed.
	ErrCancelled = errors.New("cancelled by progress callback")

	// ErrUnsupportedMode is returned by OpenReader for an OpenMode it does
	// not implement.
	ErrUnsupportedMode = errors.New("unsupported open mode")

	// ErrUnknownFormat is returned when a source file's metadata cannot be
	// encoded into the archive's attribute/timestamp representation.
	ErrUnknownFormat = errors.New("cannot encode file metadata")
)
