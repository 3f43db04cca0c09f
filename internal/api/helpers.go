package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	"github.com/docmarkapp/docmark-server/internal/http/response"
	"github.com/docmarkapp/docmark-server/internal/store"
)

// decodeBody reads and validates a JSON request body. On failure the
// error response has already been written and false is returned.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.UnmarshalRead(r.Body, dst); err != nil {
		response.BadRequest(w, "Invalid JSON body", s.logger)
		return false
	}
	if err := s.validator.Validate(dst); err != nil {
		response.HandleError(w, err, s.logger)
		return false
	}
	return true
}

// parsePageParams parses limit and offset from the query string,
// clamping them to valid ranges.
func parsePageParams(r *http.Request) store.PageParams {
	var params store.PageParams

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			params.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			params.Offset = offset
		}
	}

	params.Validate()
	return params
}
