package corpus

import (
	"maps"
	"slices"
	"strings"

	"github.com/githubnext/ocsfc/pkg/constants"
)

// EntityType distinguishes objects from events. Both share one reference
// graph but are emitted with different wrappers.
type EntityType int

const (
	ObjectEntity EntityType = iota
	EventEntity
)

func (t EntityType) String() string {
	if t == EventEntity {
		return "event"
	}
	return "object"
}

// Constraints are cross-attribute presence rules declared on a descriptor.
type Constraints struct {
	AtLeastOne []string `json:"at_least_one"`
	JustOne    []string `json:"just_one"`
}

// IsZero reports whether no constraint is declared.
func (c Constraints) IsZero() bool {
	return len(c.AtLeastOne) == 0 && len(c.JustOne) == 0
}

// Category is an entry of categories.json.
type Category struct {
	Name        string
	Caption     string `json:"caption"`
	Description string `json:"description"`
	UID         int64  `json:"uid"`
}

// Entity is an object or event as loaded: its own attributes merged against
// the dictionary, before inheritance.
type Entity struct {
	Type        EntityType
	Name        string
	Caption     string
	Description string
	Extends     string
	// Category is the declared category.
	Category string
	// DirCategory is the events subdirectory the descriptor lives in. It
	// applies only when neither the entity nor its ancestors declare a category.
	DirCategory string
	// UID is the class uid local to the category. Only events declare it.
	UID    int64
	HasUID bool
	// Attributes holds the entity's own attributes keyed by name.
	Attributes  map[string]AttributeDefinition
	Constraints Constraints
	// Includes lists profile inclusion directives. They are recorded but not resolved.
	Includes []string
	// File is the descriptor path relative to the corpus root.
	File string
}

// Abstract reports whether the entity only exists to be extended: names with
// a leading underscore, and events without a class uid.
func (e *Entity) Abstract() bool {
	if strings.HasPrefix(e.Name, constants.AbstractPrefix) {
		return true
	}
	return e.Type == EventEntity && !e.HasUID
}

// AttributeNames returns the entity's own attribute names sorted.
func (e *Entity) AttributeNames() []string {
	return slices.Sorted(maps.Keys(e.Attributes))
}
