//go:build !integration

package corpus

import (
	"testing"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestMerge(t *testing.T) {
	base := AttributeDefinition{
		Name:        "status_id",
		Type:        "integer_t",
		Caption:     "Status ID",
		Description: "The normalized status.",
		Sibling:     "status",
		Requirement: Optional,
		Enum: []EnumValue{
			{Value: 0, Caption: "Unknown"},
			{Value: 99, Caption: "Other"},
		},
	}

	t.Run("local fields win", func(t *testing.T) {
		merged := Merge(base, PartialAttributeDefinition{
			Caption:     ptr("Incident Status"),
			Requirement: ptr(Required),
		})
		assert.Equal(t, "Incident Status", merged.Caption)
		assert.Equal(t, Required, merged.Requirement)
		assert.Equal(t, "The normalized status.", merged.Description, "undeclared fields keep the base")
		assert.Equal(t, "status", merged.Sibling)
	})

	t.Run("enum is unioned and sorted", func(t *testing.T) {
		merged := Merge(base, PartialAttributeDefinition{
			Enum: map[int64]PartialEnumValue{
				5: {Caption: "Closed"},
				1: {Caption: "New"},
				0: {Caption: "Not Known"},
			},
		})
		assert.Equal(t, []EnumValue{
			{Value: 0, Caption: "Not Known"},
			{Value: 1, Caption: "New"},
			{Value: 5, Caption: "Closed"},
			{Value: 99, Caption: "Other"},
		}, merged.Enum)
	})

	t.Run("base is not mutated", func(t *testing.T) {
		_ = Merge(base, PartialAttributeDefinition{Enum: map[int64]PartialEnumValue{1: {Caption: "New"}}})
		assert.Len(t, base.Enum, 2)
	})
}

func TestDictionary(t *testing.T) {
	dict := NewDictionary(
		map[string]PartialAttributeDefinition{
			"port":     {Type: ptr("port_t")},
			"score":    {Type: ptr("score_t")},
			"weird":    {Type: ptr("mystery_t")},
			"process":  {Type: ptr("process")},
			"severity": {Type: ptr("string_t")},
		},
		map[string]TypeDefinition{
			"score_t": {Type: "port_t"},
			"loop_t":  {Type: "loop_t"},
		},
	)

	assert.Equal(t, 5, dict.Len())
	assert.Equal(t, constants.BaseInteger, dict.BaseType("port_t"))
	assert.Equal(t, constants.BaseInteger, dict.BaseType("score_t"), "derived chain reaches a builtin")
	assert.Equal(t, constants.BaseString, dict.BaseType("mystery_t"), "unknown tokens validate as string")
	assert.Equal(t, constants.BaseString, dict.BaseType("loop_t"), "self-derived tokens do not loop")

	t.Run("resolve defaults requirement", func(t *testing.T) {
		a, err := dict.resolve("port", PartialAttributeDefinition{})
		require.NoError(t, err)
		assert.Equal(t, Optional, a.Requirement)
		assert.Equal(t, KindPrimitive, a.Kind)
	})

	t.Run("resolve untyped", func(t *testing.T) {
		_, err := dict.resolve("nope", PartialAttributeDefinition{})
		assert.ErrorIs(t, err, ErrUntyped)
	})

	t.Run("local type without dictionary entry", func(t *testing.T) {
		a, err := dict.resolve("custom", PartialAttributeDefinition{Type: ptr("long_t")})
		require.NoError(t, err)
		assert.Equal(t, constants.BaseLong, a.BaseType)
	})

	t.Run("object reference with enum is rejected", func(t *testing.T) {
		_, err := dict.resolve("process", PartialAttributeDefinition{Enum: map[int64]PartialEnumValue{1: {Caption: "x"}}})
		assert.Error(t, err)
	})

	t.Run("returned enum is a copy", func(t *testing.T) {
		d := NewDictionary(map[string]PartialAttributeDefinition{
			"x_id": {Type: ptr("integer_t"), Enum: map[int64]PartialEnumValue{1: {Caption: "One"}}},
		}, nil)
		a, _ := d.Attribute("x_id")
		a.Enum[0].Caption = "changed"
		again, _ := d.Attribute("x_id")
		assert.Equal(t, "One", again.Enum[0].Caption)
	})
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"The <code>activity_name</code> attribute.", "The activity_name attribute."},
		{"line one<br>line two", "line one line two"},
		{"<p>first</p><p>second</p>", "first second"},
		{"<ul><li>a</li><li>b</li></ul>", "a b"},
		{"Tom &amp; Jerry&#39;s", "Tom & Jerry's"},
		{"  spaced \n\t out  ", "spaced out"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDescription(tt.in), "input %q", tt.in)
	}
}

func TestDetectSiblingPairs(t *testing.T) {
	enum := []EnumValue{{Value: 0, Caption: "Unknown"}, {Value: 1, Caption: "New"}}
	attrs := map[string]AttributeDefinition{
		"status_id":   {Name: "status_id", Sibling: "status", Enum: enum},
		"status":      {Name: "status"},
		"orphan_id":   {Name: "orphan_id", Sibling: "orphan", Enum: enum},
		"plain_id":    {Name: "plain_id", Sibling: "plain"},
		"plain":       {Name: "plain"},
		"severity":    {Name: "severity", Sibling: "severity_id", Enum: enum},
		"severity_id": {Name: "severity_id"},
		"class_uid":   {Name: "class_uid", Sibling: "class_name", Enum: []EnumValue{{Value: 2005, Caption: "Incident Finding"}}},
		"class_name":  {Name: "class_name"},
	}

	pairs := DetectSiblingPairs(attrs)
	assert.Equal(t, []normalize.SiblingPair{
		{IDField: "class_uid", LabelField: "class_name", Labels: map[int64]string{2005: "Incident Finding"}},
		{IDField: "status_id", LabelField: "status", Labels: map[int64]string{0: "Unknown", 1: "New"}},
	}, pairs, "only _id and _uid attributes with an enum and a present sibling pair up")
}

func TestError(t *testing.T) {
	err := &Error{File: "objects/a.json", Entity: "a", Attribute: "x", Err: ErrUntyped}
	assert.Equal(t, `objects/a.json: entity "a": attribute "x": `+ErrUntyped.Error(), err.Error())
	assert.ErrorIs(t, err, ErrUntyped)

	collector := NewErrorCollector(false)
	assert.NoError(t, collector.Error())
	assert.NoError(t, collector.Add(nil))
	assert.NoError(t, collector.Add(err))
	assert.True(t, collector.HasErrors())
	assert.Equal(t, 1, collector.Count())
	assert.Same(t, err, collector.Error())

	failFast := NewErrorCollector(true)
	assert.Same(t, err, failFast.Add(err))
	assert.False(t, failFast.HasErrors())
}
