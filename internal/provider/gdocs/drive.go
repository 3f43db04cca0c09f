package gdocs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/docmarkapp/docmark-server/internal/provider"
)

const docMimeType = "application/vnd.google-apps.document"

// ListFolder enumerates the Google Docs files directly inside a Drive
// folder, following pagination. Trashed files and non-document types are
// excluded by the query.
func (c *Client) ListFolder(ctx context.Context, creds provider.Credentials, folderID string) ([]provider.File, error) {
	var files []provider.File
	pageToken := ""

	for {
		query := url.Values{}
		query.Set("q", fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false", folderID, docMimeType))
		query.Set("fields", "files(id,name,modifiedTime),nextPageToken")
		query.Set("pageSize", strconv.Itoa(drivePageSize))
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		data, err := c.doRequest(ctx, creds, http.MethodGet, driveHost, "/drive/v3/files", query, nil)
		if err != nil {
			return nil, err
		}

		var list driveFileList
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode file list: %w", err)
		}

		for _, f := range list.Files {
			file := provider.File{ID: f.ID, Name: f.Name}
			if f.ModifiedTime != "" {
				if ts, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
					file.ModifiedAt = ts
				}
			}
			files = append(files, file)
		}

		if list.NextPageToken == "" {
			return files, nil
		}
		pageToken = list.NextPageToken
	}
}
