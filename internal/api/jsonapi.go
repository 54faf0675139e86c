package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MediaType is the JSON:API media type used for requests and responses.
const MediaType = "application/vnd.api+json"

// Document is a top-level JSON:API document.
type Document struct {
	Data     json.RawMessage `json:"data,omitempty"`
	Included []Resource      `json:"included,omitempty"`
	Meta     map[string]any  `json:"meta,omitempty"`
	Links    map[string]any  `json:"links,omitempty"`
	Errors   []ErrorObject   `json:"errors,omitempty"`
}

// ResourceDocument is a request body wrapping a single resource.
type ResourceDocument struct {
	Data Resource `json:"data"`
}

// Resource represents a single JSON:API resource.
type Resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    json.RawMessage         `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Links         map[string]any          `json:"links,omitempty"`
}

// ResourceIdentifier identifies a resource by type and ID.
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Relationship is a JSON:API relationship object. Data is kept raw because
// it may be null, an identifier or an array of identifiers.
type Relationship struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Links map[string]any  `json:"links,omitempty"`
}

// ToOne builds a to-one relationship pointing at type/id.
func ToOne(resourceType, id string) Relationship {
	data, _ := json.Marshal(ResourceIdentifier{Type: resourceType, ID: id})
	return Relationship{Data: data}
}

// Identifier returns the to-one identifier of the relationship, if any.
func (r Relationship) Identifier() (ResourceIdentifier, bool) {
	var id ResourceIdentifier
	if len(r.Data) == 0 || bytes.Equal(bytes.TrimSpace(r.Data), []byte("null")) {
		return id, false
	}
	if err := json.Unmarshal(r.Data, &id); err != nil || id.ID == "" {
		return ResourceIdentifier{}, false
	}
	return id, true
}

// NewResourceDocument wraps attributes and relationships in a request body.
func NewResourceDocument(resourceType, id string, attributes any, relationships map[string]Relationship) (*ResourceDocument, error) {
	res := Resource{
		Type:          resourceType,
		ID:            id,
		Relationships: relationships,
	}
	if attributes != nil {
		data, err := json.Marshal(attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s attributes: %w", resourceType, err)
		}
		res.Attributes = data
	}
	return &ResourceDocument{Data: res}, nil
}

// DecodeAttributes unmarshals the resource attributes into v.
func (r Resource) DecodeAttributes(v any) error {
	if len(r.Attributes) == 0 {
		return nil
	}
	return json.Unmarshal(r.Attributes, v)
}

// One decodes Data as a single resource.
func (d *Document) One() (Resource, error) {
	var res Resource
	if len(d.Data) == 0 {
		return res, fmt.Errorf("document has no data")
	}
	if err := json.Unmarshal(d.Data, &res); err != nil {
		return res, fmt.Errorf("failed to decode resource: %w", err)
	}
	return res, nil
}

// Many decodes Data as a resource collection.
func (d *Document) Many() ([]Resource, error) {
	if len(d.Data) == 0 {
		return nil, nil
	}
	var res []Resource
	if err := json.Unmarshal(d.Data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode resource collection: %w", err)
	}
	return res, nil
}

// FindIncluded looks up a sideloaded resource.
func (d *Document) FindIncluded(resourceType, id string) (Resource, bool) {
	for _, res := range d.Included {
		if res.Type == resourceType && res.ID == id {
			return res, true
		}
	}
	return Resource{}, false
}

// Count returns meta.count when the server reported one.
func (d *Document) Count() (int, bool) {
	switch v := d.Meta["count"].(type) {
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// ErrorObject represents a single JSON:API error.
type ErrorObject struct {
	Status flexString     `json:"status,omitempty"`
	Code   string         `json:"code,omitempty"`
	Title  string         `json:"title,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Source *ErrorSource   `json:"source,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// ErrorSource points at the part of the request that caused an error.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

// flexString accepts a JSON string or number. Servers disagree on whether
// error status is "422" or 422.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}
