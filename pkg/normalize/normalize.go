// Package normalize implements the normalization step every emitted event
// validator runs before structural validation.
//
// Two passes run over a shallow copy of the input record:
//
//  1. Sibling reconciliation. For every declared {id, label} pair the missing
//     half is filled from the pair's label table. A label with no exact match
//     maps to the "Other" id (99) when the table defines it, keeping the
//     caller's label text. When both halves are present they must agree,
//     except under "Other", which accepts any label.
//  2. Classification prefill. category_uid and class_uid are filled from the
//     event's constants, and type_uid = class_uid*100 + activity_id is filled
//     from the record's class_uid when an activity id is present. Caller-supplied values are never
//     overwritten. Pairs keyed on a classification field (category_uid,
//     class_uid, type_uid) are reconciled again afterwards so their labels
//     follow the prefilled ids.
//
// Values of the wrong type are left alone; structural validation reports them.
package normalize

import (
	"fmt"
	"maps"
	"slices"

	"github.com/githubnext/ocsfc/pkg/constants"
)

// SiblingPair is an id attribute and its label attribute.
type SiblingPair struct {
	IDField    string
	LabelField string
	// Labels maps every declared id to its caption.
	Labels map[int64]string
}

// Config is the per-event configuration compiled into a validator.
type Config struct {
	Siblings    []SiblingPair
	CategoryUID int64
	ClassUID    int64
}

// MismatchError reports a present id and label that disagree.
type MismatchError struct {
	IDField    string
	LabelField string
	ID         int64
	Label      string
	// Expected is the caption the label table declares for ID.
	Expected string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s/%s mismatch: %s=%d is %q, but %s=%q",
		e.IDField, e.LabelField, e.IDField, e.ID, e.Expected, e.LabelField, e.Label)
}

// Normalizer applies a Config to records. It holds no mutable state and is
// safe for concurrent use.
type Normalizer struct {
	config Config
	// byCaption[i] maps captions of config.Siblings[i] back to ids.
	byCaption []map[string]int64
}

// New builds a Normalizer for cfg.
func New(cfg Config) *Normalizer {
	n := &Normalizer{config: cfg, byCaption: make([]map[string]int64, len(cfg.Siblings))}
	for i, pair := range cfg.Siblings {
		reverse := make(map[string]int64, len(pair.Labels))
		// Ascending order so the lowest id wins when two ids share a caption.
		for _, id := range slices.Sorted(maps.Keys(pair.Labels)) {
			if _, taken := reverse[pair.Labels[id]]; !taken {
				reverse[pair.Labels[id]] = id
			}
		}
		n.byCaption[i] = reverse
	}
	return n
}

// Config returns the configuration the normalizer was built with.
func (n *Normalizer) Config() Config {
	return n.config
}

// Normalize returns a normalized shallow copy of input. The input map is
// never modified. The only error is *MismatchError.
func (n *Normalizer) Normalize(input map[string]any) (map[string]any, error) {
	out := maps.Clone(input)
	if out == nil {
		out = make(map[string]any)
	}
	for i, pair := range n.config.Siblings {
		if err := n.reconcile(out, pair, n.byCaption[i]); err != nil {
			return nil, err
		}
	}
	n.prefill(out)
	for i, pair := range n.config.Siblings {
		if !isClassification(pair.IDField) {
			continue
		}
		if err := n.reconcile(out, pair, n.byCaption[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func isClassification(field string) bool {
	switch field {
	case constants.CategoryUIDField, constants.ClassUIDField, constants.TypeUIDField:
		return true
	}
	return false
}

func (n *Normalizer) reconcile(rec map[string]any, pair SiblingPair, byCaption map[string]int64) error {
	rawID, hasID := present(rec, pair.IDField)
	rawLabel, hasLabel := present(rec, pair.LabelField)

	switch {
	case hasID && !hasLabel:
		id, ok := Int64(rawID)
		if !ok {
			return nil
		}
		if caption, found := pair.Labels[id]; found {
			rec[pair.LabelField] = caption
		}

	case hasLabel && !hasID:
		label, ok := rawLabel.(string)
		if !ok {
			return nil
		}
		if id, found := byCaption[label]; found {
			rec[pair.IDField] = id
			return nil
		}
		if _, found := pair.Labels[constants.OtherID]; found {
			rec[pair.IDField] = constants.OtherID
		}

	case hasID && hasLabel:
		id, ok := Int64(rawID)
		if !ok || id == constants.OtherID {
			return nil
		}
		label, ok := rawLabel.(string)
		if !ok {
			return nil
		}
		expected, found := pair.Labels[id]
		if !found {
			// Out-of-range id; structural validation rejects it.
			return nil
		}
		if label != expected {
			return &MismatchError{
				IDField:    pair.IDField,
				LabelField: pair.LabelField,
				ID:         id,
				Label:      label,
				Expected:   expected,
			}
		}
	}
	return nil
}

func (n *Normalizer) prefill(rec map[string]any) {
	if _, ok := present(rec, constants.CategoryUIDField); !ok {
		rec[constants.CategoryUIDField] = n.config.CategoryUID
	}
	if _, ok := present(rec, constants.ClassUIDField); !ok {
		rec[constants.ClassUIDField] = n.config.ClassUID
	}
	if _, ok := present(rec, constants.TypeUIDField); ok {
		return
	}
	raw, ok := present(rec, constants.ActivityIDField)
	if !ok {
		return
	}
	activity, ok := Int64(raw)
	if !ok {
		return
	}
	classUID, ok := Int64(rec[constants.ClassUIDField])
	if !ok {
		classUID = n.config.ClassUID
	}
	rec[constants.TypeUIDField] = classUID*constants.TypeUIDMultiplier + activity
}

// present returns the value at key when it exists and is not null.
func present(rec map[string]any, key string) (any, bool) {
	v, ok := rec[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
