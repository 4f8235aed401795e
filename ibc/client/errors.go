package client

import (
	"fmt"

	"github.com/lightibc/lightibc/ibc"
)

var (
	ErrUnknownClientKind = fmt.Errorf("%w: no client variant set", ibc.ErrMalformedInput)
	ErrKindMismatch      = fmt.Errorf("%w: client kind mismatch", ibc.ErrMalformedInput)
	ErrUnknownTypeURL    = fmt.Errorf("%w: unknown type url", ibc.ErrMalformedInput)
	ErrInvalidClientID   = fmt.Errorf("%w: invalid client id", ibc.ErrMalformedInput)

	ErrUnknownCodeID = fmt.Errorf("%w: unknown code id", ibc.ErrMalformedInput)
	ErrCodeIDInUse   = fmt.Errorf("%w: code id already registered", ibc.ErrMalformedInput)

	ErrClientNotFound         = fmt.Errorf("%w: client not found", ibc.ErrTargetNotFound)
	ErrConsensusStateNotFound = fmt.Errorf("%w: consensus state not found", ibc.ErrTargetNotFound)

	// ErrConcurrentUpdate is returned when the stored client state changed
	// between reading it and writing its update.
	ErrConcurrentUpdate = fmt.Errorf("%w: client state changed during update", ibc.ErrStaleUpdate)

	ErrMisbehaviourUnsupported = fmt.Errorf("%w: misbehaviour submission not supported by client", ibc.ErrMalformedInput)
)

var ErrClientExists = fmt.Errorf("%w: client already exists", ibc.ErrMalformedInput)
