package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBoolean(t *testing.T) {
	truthy := []any{"yes", "YES", " y ", "on", "true", "1", true, float64(1), 1, json.Number("1")}
	for _, v := range truthy {
		assert.Equal(t, Truthy, NormalizeBoolean(v), "value %#v", v)
	}

	falsy := []any{"", "no", "0", "off", "1.5", false, float64(0), 0, nil, json.Number("2")}
	for _, v := range falsy {
		assert.Equal(t, Falsy, NormalizeBoolean(v), "value %#v", v)
	}
}

func TestNormalizeBooleanIsIdempotent(t *testing.T) {
	for _, v := range []string{Truthy, Falsy} {
		once := NormalizeBoolean(v)
		assert.Equal(t, v, once)
		assert.Equal(t, once, NormalizeBoolean(once))
	}
}

func TestIsBooleanField(t *testing.T) {
	assert.True(t, IsBooleanField("Called"))
	assert.True(t, IsBooleanField("visited"))
	assert.True(t, IsBooleanField("CONFIRMEDVOTER"))
	assert.False(t, IsBooleanField("CallDate"))
	assert.False(t, IsBooleanField("Recalled"))
}

func TestNormalizeInput(t *testing.T) {
	in := Input{
		"rowNumber": 7,
		"Called":    "yes",
		"Visited":   nil,
		"Name":      "Alice",
		"Age":       float64(42),
		"Notes":     nil,
	}

	out := NormalizeInput(in)

	assert.NotContains(t, out, "rowNumber")
	assert.Equal(t, "1", *out["Called"])
	assert.Equal(t, "0", *out["Visited"])
	assert.Equal(t, "Alice", *out["Name"])
	assert.Equal(t, "42", *out["Age"])
	assert.Nil(t, out["Notes"])
	assert.Equal(t, []string{"Age", "Called", "Name", "Notes", "Visited"}, out.Names())
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "123", NormalizeCode(" 123.0 "))
	assert.Equal(t, "45", NormalizeCode("45"))
	assert.Equal(t, "", NormalizeCode("  "))
	assert.Equal(t, "", NormalizeCode(".5"))
}

func TestRecordSnapshotRoundTrip(t *testing.T) {
	r := NewRecord(3)
	r.Set("Name", Str("Alice"))
	r.Set("Called", Str("0"))
	r.Set("Comments", nil)

	snap, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, `{"rowNumber":3,"Name":"Alice","Called":"0","Comments":null}`, snap)

	back, err := ParseSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, int64(3), back.ID)
	assert.Equal(t, []string{"Name", "Called", "Comments"}, back.Columns())
	assert.True(t, back.Has("Comments"))
	assert.Nil(t, back.Value("Comments"))
}

func TestParseSnapshotAcceptsLooseScalars(t *testing.T) {
	r, err := ParseSnapshot(`{"Called":1,"rowNumber":"9","Flag":true}`)
	require.NoError(t, err)
	assert.Equal(t, int64(9), r.ID)
	called, _ := r.Get("Called")
	assert.Equal(t, "1", called)
	flag, _ := r.Get("Flag")
	assert.Equal(t, "true", flag)
}

func TestParseSnapshotMalformed(t *testing.T) {
	for _, s := range []string{"", "not json", `["a"]`, `{"Name":{"x":1}}`, `{"Name":"a"} extra`} {
		_, err := ParseSnapshot(s)
		assert.True(t, errors.Is(err, ErrMalformedSnapshot), "input %q", s)
	}
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleEditor))
	assert.True(t, RoleEditor.AtLeast(RoleEditor))
	assert.False(t, RoleViewer.AtLeast(RoleEditor))
	assert.False(t, Role("root").AtLeast(RoleViewer))
	assert.False(t, RoleAdmin.AtLeast(Role("root")))
}

func TestUserFormValidation(t *testing.T) {
	valid := UserForm{Username: "bob", Role: RoleEditor}
	assert.Empty(t, valid.Validate())

	invalid := UserForm{Username: " ", Role: "boss"}
	assert.Len(t, invalid.Validate(), 2)
}

func TestLocalityFormToLocality(t *testing.T) {
	f := LocalityForm{Name: "  Springfield ", PP: "12.0", UC: float64(34)}
	assert.Empty(t, f.Validate())

	loc := f.ToLocality()
	assert.Equal(t, "Springfield", loc.Name)
	assert.Equal(t, "12", loc.PP)
	assert.Equal(t, "34", loc.UC)

	assert.NotEmpty(t, (&LocalityForm{}).Validate())
}

func TestSearchQueryNormalize(t *testing.T) {
	q := SearchQuery{Limit: Int(5000), Offset: -3}
	q.Normalize()
	assert.Equal(t, MaxSearchLimit, *q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, ScopeAll, q.Scope)

	q = SearchQuery{}
	q.Normalize()
	assert.Equal(t, DefaultSearchLimit, *q.Limit)

	for _, n := range []int{0, -3} {
		q = SearchQuery{Limit: Int(n)}
		q.Normalize()
		assert.Equal(t, 1, *q.Limit)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultReportLimit, ClampLimit(nil, DefaultReportLimit))
	assert.Equal(t, 1, ClampLimit(Int(0), DefaultReportLimit))
	assert.Equal(t, 1, ClampLimit(Int(-7), DefaultReportLimit))
	assert.Equal(t, 42, ClampLimit(Int(42), DefaultReportLimit))
	assert.Equal(t, MaxSearchLimit, ClampLimit(Int(MaxSearchLimit+1), DefaultReportLimit))
}
