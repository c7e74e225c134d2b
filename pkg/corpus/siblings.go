package corpus

import (
	"maps"
	"slices"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/normalize"
)

// DetectSiblingPairs returns the id/label pairs of a final merged attribute
// set, sorted by id field. An attribute is the id half of a pair when its name
// ends in "_id" or "_uid", it declares enum values and it names a sibling; the pair is
// skipped unless the sibling is also in attrs.
func DetectSiblingPairs(attrs map[string]AttributeDefinition) []normalize.SiblingPair {
	var pairs []normalize.SiblingPair
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		a := attrs[name]
		if !constants.IsSiblingIDName(name) || len(a.Enum) == 0 || a.Sibling == "" {
			continue
		}
		if _, ok := attrs[a.Sibling]; !ok {
			continue
		}
		pairs = append(pairs, normalize.SiblingPair{
			IDField:    name,
			LabelField: a.Sibling,
			Labels:     a.EnumLabels(),
		})
	}
	return pairs
}
