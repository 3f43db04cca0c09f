package gdocs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/docmarkapp/docmark-server/internal/provider"
)

// FetchDocument reads the full document, flattens its body and extracts
// segment markers.
func (c *Client) FetchDocument(ctx context.Context, creds provider.Credentials, fileID string) (*provider.Snapshot, error) {
	doc, runs, err := c.fetchRaw(ctx, creds, fileID)
	if err != nil {
		return nil, err
	}

	text, _ := flattenDocument(doc)
	return &provider.Snapshot{
		FileID:  fileID,
		Title:   doc.Title,
		Text:    text,
		Markers: extractMarkers(doc, runs),
	}, nil
}

// fetchRaw loads and decodes the document, returning the wire form and
// its run table for offset conversion.
func (c *Client) fetchRaw(ctx context.Context, creds provider.Credentials, fileID string) (*document, runTable, error) {
	data, err := c.doRequest(ctx, creds, http.MethodGet,
		docsHost, "/v1/documents/"+url.PathEscape(fileID), nil, nil)
	if err != nil {
		return nil, nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode document: %w", err)
	}

	_, runs := flattenDocument(&doc)
	return &doc, runs, nil
}

// CreateMarker writes a named range anchoring a segment. Any existing
// range with the same name is removed in the same batch so repeated
// calls converge on a single range.
func (c *Client) CreateMarker(ctx context.Context, creds provider.Credentials, fileID string, marker provider.Marker) error {
	doc, runs, err := c.fetchRaw(ctx, creds, fileID)
	if err != nil {
		return err
	}

	requests := []updateRequest{}
	if _, exists := doc.NamedRanges[marker.Name]; exists {
		requests = append(requests, updateRequest{
			DeleteNamedRange: &deleteNamedRangeRequest{Name: marker.Name},
		})
	}
	requests = append(requests, updateRequest{
		CreateNamedRange: &createNamedRangeRequest{
			Name: marker.Name,
			Range: docsRange{
				StartIndex: runs.docIndex(marker.StartOffset),
				EndIndex:   runs.docIndex(marker.EndOffset),
			},
		},
	})

	return c.batchUpdate(ctx, creds, fileID, requests)
}

// DeleteMarkers removes the named ranges with the given names in one
// batch. Names that no longer exist are skipped rather than failing the
// whole batch.
func (c *Client) DeleteMarkers(ctx context.Context, creds provider.Credentials, fileID string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	doc, _, err := c.fetchRaw(ctx, creds, fileID)
	if err != nil {
		return err
	}

	requests := make([]updateRequest, 0, len(names))
	for _, name := range names {
		if _, exists := doc.NamedRanges[name]; !exists {
			continue
		}
		requests = append(requests, updateRequest{
			DeleteNamedRange: &deleteNamedRangeRequest{Name: name},
		})
	}
	if len(requests) == 0 {
		return nil
	}

	return c.batchUpdate(ctx, creds, fileID, requests)
}

func (c *Client) batchUpdate(ctx context.Context, creds provider.Credentials, fileID string, requests []updateRequest) error {
	_, err := c.doRequest(ctx, creds, http.MethodPost,
		docsHost, "/v1/documents/"+url.PathEscape(fileID)+":batchUpdate",
		nil, batchUpdateRequest{Requests: requests})
	return err
}
