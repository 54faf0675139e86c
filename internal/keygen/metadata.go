package keygen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

// ParseMetadata turns key=value pairs into a metadata map. Values that are
// valid JSON (numbers, booleans, objects) are kept typed; anything else is a
// string.
func ParseMetadata(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected key=value", pair)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			out[key] = parsed
			continue
		}
		out[key] = value
	}
	return out, nil
}

// UpdateMetadata replaces the metadata of resourceType/id.
func (c *Client) UpdateMetadata(ctx context.Context, resourceType, id string, metadata map[string]any) error {
	if !slices.Contains(ResourceTypes, resourceType) {
		return fmt.Errorf("unknown resource type %q", resourceType)
	}
	doc, err := api.NewResourceDocument(resourceType, id, map[string]any{"metadata": metadata}, nil)
	if err != nil {
		return err
	}
	_, err = c.api.Do(ctx, api.Request{
		Method:   http.MethodPatch,
		Endpoint: resourceType + "/" + url.PathEscape(id),
		Body:     doc,
	})
	return err
}
