package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
	"github.com/avatarctic/tiered-cache/go/internal/infrastructure/httpserver/helpers"
)

type putEntryRequest struct {
	Key        string            `json:"key"`
	Kind       string            `json:"kind,omitempty"`
	FetchCache bool              `json:"fetchCache,omitempty"`
	Data       json.RawMessage   `json:"data"`
	Context    *ports.SetContext `json:"context,omitempty"`
}

type revalidateTagRequest struct {
	Tags []string `json:"tags"`
}

type metadataRequest struct {
	Kind string   `json:"kind,omitempty"`
	Keys []string `json:"keys"`
}

type metadataResponse struct {
	Records []cache.KeyedMetadata `json:"records"`
}

// parseKind returns the zero kind for empty input so the handler can apply
// its own fetch-cache default.
func parseKind(raw string) (cache.Kind, error) {
	if raw == "" {
		return "", nil
	}
	k, err := cache.ParseKind(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return k, nil
}

func (s *Server) getEntry(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}
	kind, err := parseKind(c.QueryParam("kind"))
	if err != nil {
		return err
	}
	fetchCache := false
	if raw := c.QueryParam("fetchCache"); raw != "" {
		if fetchCache, err = strconv.ParseBool(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid fetchCache")
		}
	}

	entry := s.handler.Get(c.Request().Context(), key, ports.GetOptions{Kind: kind, FetchCache: fetchCache})
	if entry == nil {
		return c.JSON(http.StatusNotFound, nil)
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) putEntry(c echo.Context) error {
	var req putEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		return err
	}

	var sc ports.SetContext
	if req.Context != nil {
		sc = *req.Context
	}
	if kind != "" {
		sc.Kind = kind
	} else if sc.Kind != "" && !sc.Kind.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown cache kind")
	}
	sc.FetchCache = sc.FetchCache || req.FetchCache

	s.handler.Set(c.Request().Context(), req.Key, req.Data, sc)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": req.Key, "kind": sc.Kind, "subject": helpers.GetSubject(c)}).Debug("cache entry written")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteEntry(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}
	kind, err := parseKind(c.QueryParam("kind"))
	if err != nil {
		return err
	}

	s.handler.Set(c.Request().Context(), key, nil, ports.SetContext{Kind: kind})
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key, "kind": kind, "subject": helpers.GetSubject(c)}).Debug("cache entry deleted")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) revalidateTag(c echo.Context) error {
	var req revalidateTagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Tags) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tags are required")
	}
	s.handler.RevalidateTag(c.Request().Context(), req.Tags...)
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) metadata(c echo.Context) error {
	var req metadataRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Keys) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "keys are required")
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		return err
	}

	records := s.handler.Metadata(c.Request().Context(), kind, req.Keys)
	if records == nil {
		records = []cache.KeyedMetadata{}
	}
	return c.JSON(http.StatusOK, metadataResponse{Records: records})
}
