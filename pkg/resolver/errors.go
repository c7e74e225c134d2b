package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/githubnext/ocsfc/pkg/corpus"
)

var (
	// ErrMissingParent is reported when extends names an entity that does not exist.
	ErrMissingParent = errors.New("extends unknown entity")
	// ErrUnknownType is reported when an attribute references an object that does not exist.
	ErrUnknownType = errors.New("references unknown object type")
	// ErrUnknownCategory is reported when an event's category is not in categories.json.
	ErrUnknownCategory = errors.New("unknown category")
)

// ExtendsCycleError reports an inheritance chain that loops back on itself.
type ExtendsCycleError struct {
	Type corpus.EntityType
	// Chain lists the entities of the loop; the first entity is repeated at the end.
	Chain []string
}

func (e *ExtendsCycleError) Error() string {
	return fmt.Sprintf("%s extends cycle: %s", e.Type, strings.Join(e.Chain, " -> "))
}
