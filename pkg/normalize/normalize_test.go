//go:build !integration

package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusPair() SiblingPair {
	return SiblingPair{
		IDField:    "status_id",
		LabelField: "status",
		Labels: map[int64]string{
			0:  "Unknown",
			1:  "New",
			2:  "In Progress",
			3:  "On Hold",
			4:  "Resolved",
			5:  "Closed",
			99: "Other",
		},
	}
}

func activityPair() SiblingPair {
	return SiblingPair{
		IDField:    "activity_id",
		LabelField: "activity_name",
		Labels:     map[int64]string{0: "Unknown", 1: "Create", 2: "Update", 3: "Close", 99: "Other"},
	}
}

func newIncidentNormalizer() *Normalizer {
	return New(Config{
		Siblings:    []SiblingPair{statusPair(), activityPair()},
		CategoryUID: 2,
		ClassUID:    2005,
	})
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]any
		wantID    any
		wantLabel any
	}{
		{
			name:      "id only fills label",
			input:     map[string]any{"status_id": 1},
			wantID:    1,
			wantLabel: "New",
		},
		{
			name:      "id only out of range leaves label absent",
			input:     map[string]any{"status_id": 42},
			wantID:    42,
			wantLabel: nil,
		},
		{
			name:      "label only fills id",
			input:     map[string]any{"status": "In Progress"},
			wantID:    int64(2),
			wantLabel: "In Progress",
		},
		{
			name:      "label Other maps to sentinel",
			input:     map[string]any{"status": "Other"},
			wantID:    int64(99),
			wantLabel: "Other",
		},
		{
			name:      "unknown label falls back to Other and keeps text",
			input:     map[string]any{"status": "Totally Custom Text"},
			wantID:    int64(99),
			wantLabel: "Totally Custom Text",
		},
		{
			name:      "label match is exact",
			input:     map[string]any{"status": "in progress"},
			wantID:    int64(99),
			wantLabel: "in progress",
		},
		{
			name:      "Other id accepts any label",
			input:     map[string]any{"status_id": 99, "status": "Anything"},
			wantID:    99,
			wantLabel: "Anything",
		},
		{
			name:      "consistent pair is untouched",
			input:     map[string]any{"status_id": 5, "status": "Closed"},
			wantID:    5,
			wantLabel: "Closed",
		},
		{
			name:      "neither present is a no-op",
			input:     map[string]any{},
			wantID:    nil,
			wantLabel: nil,
		},
		{
			name:      "null id counts as absent",
			input:     map[string]any{"status_id": nil, "status": "New"},
			wantID:    int64(1),
			wantLabel: "New",
		},
		{
			name:      "json number id fills label",
			input:     map[string]any{"status_id": json.Number("3")},
			wantID:    json.Number("3"),
			wantLabel: "On Hold",
		},
		{
			name:      "non-integer id is left for structural validation",
			input:     map[string]any{"status_id": "3"},
			wantID:    "3",
			wantLabel: nil,
		},
	}

	n := New(Config{Siblings: []SiblingPair{statusPair()}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := n.Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, out["status_id"], "status_id")
			assert.Equal(t, tt.wantLabel, out["status"], "status")
		})
	}
}

func TestReconcile_NoOtherEntry(t *testing.T) {
	pair := SiblingPair{IDField: "risk_level_id", LabelField: "risk_level", Labels: map[int64]string{0: "Info", 1: "Low"}}
	n := New(Config{Siblings: []SiblingPair{pair}})

	out, err := n.Normalize(map[string]any{"risk_level": "Extreme"})
	require.NoError(t, err)
	assert.NotContains(t, out, "risk_level_id", "no Other entry means no fallback id")
	assert.Equal(t, "Extreme", out["risk_level"])
}

func TestReconcile_Mismatch(t *testing.T) {
	n := New(Config{Siblings: []SiblingPair{statusPair()}})

	_, err := n.Normalize(map[string]any{"status_id": 1, "status": "Closed"})
	require.Error(t, err)

	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch, "mismatch should be typed")
	assert.Equal(t, "status_id", mismatch.IDField)
	assert.Equal(t, "status", mismatch.LabelField)
	assert.Equal(t, int64(1), mismatch.ID)
	assert.Equal(t, "Closed", mismatch.Label)
	assert.Equal(t, "New", mismatch.Expected)
	assert.Contains(t, err.Error(), "status_id=1")
	assert.Contains(t, err.Error(), `"Closed"`)
	assert.Contains(t, err.Error(), `"New"`)
}

func TestReconcile_Idempotent(t *testing.T) {
	n := newIncidentNormalizer()
	inputs := []map[string]any{
		{"status": "In Progress", "activity_name": "Update"},
		{"status_id": 4},
		{"status": "Vendor Specific", "activity_id": 99, "activity_name": "Sync"},
	}
	for _, input := range inputs {
		first, err := n.Normalize(input)
		require.NoError(t, err)
		second, err := n.Normalize(first)
		require.NoError(t, err)
		assert.Equal(t, first, second, "normalizing twice must not drift")
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	n := newIncidentNormalizer()
	input := map[string]any{"status": "New", "activity_id": 1}

	out, err := n.Normalize(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "New", "activity_id": 1}, input, "input must be untouched")
	assert.Equal(t, int64(1), out["status_id"])
}

func TestPrefill(t *testing.T) {
	n := newIncidentNormalizer()

	out, err := n.Normalize(map[string]any{"activity_name": "Update"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out["category_uid"])
	assert.Equal(t, int64(2005), out["class_uid"])
	assert.Equal(t, int64(2), out["activity_id"])
	assert.Equal(t, int64(200502), out["type_uid"])
}

func TestPrefill_GapFillingOnly(t *testing.T) {
	n := newIncidentNormalizer()

	out, err := n.Normalize(map[string]any{"category_uid": 7, "class_uid": 7001, "type_uid": 1, "activity_id": 3})
	require.NoError(t, err)
	assert.Equal(t, 7, out["category_uid"], "caller category_uid survives")
	assert.Equal(t, 7001, out["class_uid"], "caller class_uid survives")
	assert.Equal(t, 1, out["type_uid"], "caller type_uid survives")
}

func TestPrefill_TypeUIDFollowsRecordClass(t *testing.T) {
	n := newIncidentNormalizer()

	out, err := n.Normalize(map[string]any{"class_uid": 7001, "activity_id": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(700103), out["type_uid"], "type_uid is built from the record's class_uid")

	out, err = n.Normalize(map[string]any{"class_uid": "bad", "activity_id": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(200503), out["type_uid"], "a malformed class_uid falls back to the event's class")
}

func TestPrefill_NoActivityNoTypeUID(t *testing.T) {
	n := New(Config{CategoryUID: 1, ClassUID: 1007})

	out, err := n.Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"category_uid": int64(1), "class_uid": int64(1007)}, out)
}

func TestNormalize_MismatchStopsBeforePrefill(t *testing.T) {
	n := newIncidentNormalizer()

	out, err := n.Normalize(map[string]any{"activity_id": 1, "activity_name": "Close"})
	assert.Nil(t, out)
	var mismatch *MismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestNew_DuplicateCaptionsPreferLowestID(t *testing.T) {
	pair := SiblingPair{IDField: "x_id", LabelField: "x", Labels: map[int64]string{3: "Same", 1: "Same"}}
	out, err := New(Config{Siblings: []SiblingPair{pair}}).Normalize(map[string]any{"x": "Same"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out["x_id"])
}

func TestInt64(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"int", 7, 7, true},
		{"int32", int32(-3), -3, true},
		{"uint8", uint8(9), 9, true},
		{"integral float", 1700000000000.0, 1700000000000, true},
		{"fractional float", 1.5, 0, false},
		{"json number", json.Number("99"), 99, true},
		{"json number float", json.Number("2.0"), 2, true},
		{"string", "1", 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Int64(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrefill_FillsClassificationLabels(t *testing.T) {
	n := New(Config{
		Siblings: []SiblingPair{
			activityPair(),
			{IDField: "category_uid", LabelField: "category_name", Labels: map[int64]string{2: "Findings"}},
			{IDField: "class_uid", LabelField: "class_name", Labels: map[int64]string{2005: "Incident Finding"}},
			{IDField: "type_uid", LabelField: "type_name", Labels: map[int64]string{200501: "Incident Finding: Create"}},
		},
		CategoryUID: 2,
		ClassUID:    2005,
	})

	out, err := n.Normalize(map[string]any{"activity_name": "Create"})
	require.NoError(t, err)
	assert.Equal(t, "Findings", out["category_name"])
	assert.Equal(t, "Incident Finding", out["class_name"])
	assert.Equal(t, int64(200501), out["type_uid"])
	assert.Equal(t, "Incident Finding: Create", out["type_name"])

	_, err = n.Normalize(map[string]any{"class_name": "Process Activity"})
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch, "a label that contradicts the prefilled class must be rejected")
	assert.Equal(t, "class_uid", mismatch.IDField)
}
