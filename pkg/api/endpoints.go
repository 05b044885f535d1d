package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Endpoint describes one logical API resource. All list, single, and search
// operations are driven by this fixed table; no per-endpoint methods are
// generated at runtime.
type Endpoint struct {
	// Name is the resource key used by the CLI (e.g. "plants").
	Name string

	// Path is the collection path, without trailing slash.
	Path string

	// Filterable reports whether the list endpoint accepts
	// filter/filter_not/order/range objects.
	Filterable bool

	// Searchable reports whether a /search sub-endpoint exists.
	Searchable bool

	// Label is the singular noun used in logs and error messages.
	Label string
}

// Endpoints is the fixed descriptor table for the plant API.
var Endpoints = []Endpoint{
	{Name: "plants", Path: "/plants", Filterable: true, Searchable: true, Label: "plant"},
	{Name: "species", Path: "/species", Filterable: true, Searchable: true, Label: "species"},
	{Name: "genus", Path: "/genus", Filterable: true, Label: "genus"},
	{Name: "families", Path: "/families", Filterable: true, Label: "family"},
	{Name: "kingdoms", Path: "/kingdoms", Label: "kingdom"},
	{Name: "subkingdoms", Path: "/subkingdoms", Label: "subkingdom"},
	{Name: "divisions", Path: "/divisions", Label: "division"},
	{Name: "division_classes", Path: "/division_classes", Label: "division class"},
	{Name: "division_orders", Path: "/division_orders", Label: "division order"},
	{Name: "distributions", Path: "/distributions", Label: "zone"},
	{Name: "corrections", Path: "/corrections", Label: "correction"},
}

// EndpointByName looks up a descriptor from the fixed table.
func EndpointByName(name string) (Endpoint, bool) {
	for _, ep := range Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// Links holds pagination links of a list response. An empty Next means the
// fetched page was the last one.
type Links struct {
	Self  string `json:"self"`
	First string `json:"first"`
	Next  string `json:"next"`
	Last  string `json:"last"`
}

// Meta holds list response metadata.
type Meta struct {
	Total int64 `json:"total"`
}

// Page is one page of a list or search response.
type Page struct {
	Data  []Record `json:"data"`
	Links Links    `json:"links"`
	Meta  Meta     `json:"meta"`
}

type singleResponse struct {
	Data Record `json:"data"`
}

// ListPage fetches one page of ep's collection.
func (c *Client) ListPage(ctx context.Context, ep Endpoint, page int, q *Query) (*Page, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if ep.Filterable {
		if err := q.apply(params); err != nil {
			return nil, err
		}
	}
	return c.fetchPage(ctx, ep.Path, params)
}

// SearchPage fetches one page of search results for ep. The query string is
// required; an empty one is rejected before any network effect.
func (c *Client) SearchPage(ctx context.Context, ep Endpoint, query string, page int, q *Query) (*Page, error) {
	if !ep.Searchable {
		return nil, &ValidationError{Field: "endpoint", Reason: ep.Name + " does not support search"}
	}
	if err := RequireNonEmpty("query", query); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if ep.Filterable {
		if err := q.apply(params); err != nil {
			return nil, err
		}
	}
	return c.fetchPage(ctx, ep.Path+"/search", params)
}

// GetOne fetches a single item by id or slug and returns its data record.
func (c *Client) GetOne(ctx context.Context, ep Endpoint, id string) (Record, error) {
	if err := RequireNonEmpty(ep.Label+" id", id); err != nil {
		return nil, err
	}

	raw, err := c.Get(ctx, ep.Path+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var resp singleResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", ep.Label, id, err)
	}
	return resp.Data, nil
}

// ZonePlantsPage fetches one page of plants recorded in a distribution zone.
func (c *Client) ZonePlantsPage(ctx context.Context, zoneID string, page int, q *Query) (*Page, error) {
	if err := RequireNonEmpty("zone id", zoneID); err != nil {
		return nil, err
	}

	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if err := q.apply(params); err != nil {
		return nil, err
	}
	return c.fetchPage(ctx, "/distributions/"+url.PathEscape(zoneID)+"/plants", params)
}

// SubmitCorrection posts a correction note for a species.
func (c *Client) SubmitCorrection(ctx context.Context, speciesID, notes string) (Record, error) {
	if err := RequireNonEmpty("species id", speciesID); err != nil {
		return nil, err
	}
	if err := RequireNonEmpty("notes", notes); err != nil {
		return nil, err
	}

	body := map[string]any{"notes": notes}
	raw, err := c.Post(ctx, "/corrections/species/"+url.PathEscape(speciesID), body, nil)
	if err != nil {
		return nil, err
	}

	var resp singleResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode correction response: %w", err)
	}
	return resp.Data, nil
}

func (c *Client) fetchPage(ctx context.Context, path string, params url.Values) (*Page, error) {
	raw, err := c.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode page from %s: %w", path, err)
	}
	return &page, nil
}
