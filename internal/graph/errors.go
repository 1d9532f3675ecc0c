package graph

import (
	"errors"
	"fmt"
)

// ErrUnknownNode marks a mutation referencing a node id the store does not
// hold. Late events racing with deletion hit this routinely, so callers
// log and ignore it rather than failing.
var ErrUnknownNode = errors.New("graph: unknown node")

func unknownNode(id string) error {
	return fmt.Errorf("%w: %q", ErrUnknownNode, id)
}
