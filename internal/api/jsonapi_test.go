package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResourceDocument(t *testing.T) {
	doc, err := NewResourceDocument("licenses", "", map[string]any{"name": "Pro"}, map[string]Relationship{
		"policy": ToOne("policies", "pol_1"),
	})
	require.NoError(t, err)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"type":"licenses","attributes":{"name":"Pro"},"relationships":{"policy":{"data":{"type":"policies","id":"pol_1"}}}}}`, string(data))
}

func TestNewResourceDocument_NoAttributes(t *testing.T) {
	doc, err := NewResourceDocument("machines", "m_1", nil, nil)
	require.NoError(t, err)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"type":"machines","id":"m_1"}}`, string(data))
}

func TestRelationship_Identifier(t *testing.T) {
	id, ok := ToOne("products", "prod_1").Identifier()
	require.True(t, ok)
	assert.Equal(t, ResourceIdentifier{Type: "products", ID: "prod_1"}, id)

	_, ok = Relationship{Data: json.RawMessage("null")}.Identifier()
	assert.False(t, ok)

	_, ok = Relationship{Links: map[string]any{"related": "/x"}}.Identifier()
	assert.False(t, ok)

	_, ok = Relationship{Data: json.RawMessage(`[{"type":"a","id":"1"}]`)}.Identifier()
	assert.False(t, ok)
}

func TestDocument_OneManyIncluded(t *testing.T) {
	raw := `{
		"data": {"type":"licenses","id":"lic_1","attributes":{"key":"ABC"},"relationships":{"policy":{"data":{"type":"policies","id":"pol_1"}}}},
		"included": [{"type":"policies","id":"pol_1","attributes":{"name":"Pro"}}],
		"meta": {"count": 3}
	}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	res, err := doc.One()
	require.NoError(t, err)
	assert.Equal(t, "lic_1", res.ID)

	var attrs struct {
		Key string `json:"key"`
	}
	require.NoError(t, res.DecodeAttributes(&attrs))
	assert.Equal(t, "ABC", attrs.Key)

	polID, ok := res.Relationships["policy"].Identifier()
	require.True(t, ok)
	pol, ok := doc.FindIncluded(polID.Type, polID.ID)
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"Pro"}`, string(pol.Attributes))

	_, ok = doc.FindIncluded("products", "nope")
	assert.False(t, ok)

	count, ok := doc.Count()
	assert.True(t, ok)
	assert.Equal(t, 3, count)

	_, err = doc.Many()
	assert.Error(t, err)
}

func TestDocument_EmptyData(t *testing.T) {
	doc := &Document{}
	_, err := doc.One()
	assert.Error(t, err)

	items, err := doc.Many()
	assert.NoError(t, err)
	assert.Nil(t, items)

	_, ok := doc.Count()
	assert.False(t, ok)
}

func TestErrorObject_FlexibleStatus(t *testing.T) {
	var objs []ErrorObject
	require.NoError(t, json.Unmarshal([]byte(`[{"status":"422"},{"status":404},{"status":null},{}]`), &objs))
	assert.Equal(t, flexString("422"), objs[0].Status)
	assert.Equal(t, flexString("404"), objs[1].Status)
	assert.Equal(t, flexString(""), objs[2].Status)
	assert.Equal(t, flexString(""), objs[3].Status)
}
