package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/remote"
)

// routing selects how tables map onto HTTP paths.
type routing int

const (
	// resource routes: /api/v1/posts?user_id=X, list wrapped in {"items": [...]}
	resourceRoutes routing = iota
	// table routes: /api/v1/rest/posts?user_id=eq.X&order=created_at.desc, bare array
	tableRoutes
)

var resourcePaths = map[string]string{
	remote.TablePosts:   "/api/v1/posts",
	remote.TableMedia:   "/api/v1/media",
	remote.TableFollows: "/api/v1/follows",
}

// Store is a RemoteStore over the HTTP API.
type Store struct {
	http    *resty.Client
	routing routing
}

var _ remote.RemoteStore = (*Store)(nil)

// NewStore talks to the bearer-token resource endpoints. It has no change
// feed, so views built on it refetch after each mutation.
func NewStore(c *resty.Client) *Store {
	return &Store{http: c, routing: resourceRoutes}
}

// NewTableStore talks to the table-shaped endpoints that back the realtime channel.
func NewTableStore(c *resty.Client) *Store {
	return &Store{http: c, routing: tableRoutes}
}

func (s *Store) collection(table string) (string, error) {
	if s.routing == tableRoutes {
		return "/api/v1/rest/" + url.PathEscape(table), nil
	}
	p, ok := resourcePaths[table]
	if !ok {
		return "", cuberrors.ValidationError("table", fmt.Sprintf("unknown table %q", table))
	}
	return p, nil
}

// Query lists rows of table matching filter, newest first unless order says otherwise
func (s *Store) Query(ctx context.Context, table string, filter remote.Filter, order remote.Order) ([]remote.Item, error) {
	path, err := s.collection(table)
	if err != nil {
		return nil, err
	}

	req := s.http.R().SetContext(ctx)
	dir := "asc"
	if order.Descending {
		dir = "desc"
	}
	switch s.routing {
	case tableRoutes:
		req.SetQueryParam("select", "*")
		req.SetQueryParam("order", "created_at."+dir)
		if !filter.IsZero() {
			req.SetQueryParam(filter.Column, "eq."+filter.Value)
		}
	default:
		req.SetQueryParam("order", dir)
		if !filter.IsZero() {
			req.SetQueryParam(filter.Column, filter.Value)
		}
	}

	resp, err := req.Get(path)
	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var rows []map[string]any
	if s.routing == tableRoutes {
		err = decode(resp, &rows)
	} else {
		var list listResponse
		err = decode(resp, &list)
		rows = list.Items
	}
	if err != nil {
		return nil, err
	}

	items, err := remote.DecodeRows(table, rows)
	if err != nil {
		return nil, cuberrors.New(cuberrors.ErrorTypeUnknown, "malformed row from server", err)
	}
	logger.Debug("Query", "table", table, "filter", filter.Column, "rows", len(items))
	return items, nil
}

// Insert creates a row and returns it as stored
func (s *Store) Insert(ctx context.Context, table string, fields map[string]any) (remote.Item, error) {
	path, err := s.collection(table)
	if err != nil {
		return remote.Item{}, err
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=representation").
		SetBody(fields).
		Post(path)
	if err := CheckResponse(resp, err); err != nil {
		return remote.Item{}, err
	}
	return decodeItem(resp, table)
}

// Update applies a partial update to one row
func (s *Store) Update(ctx context.Context, table, id string, partial map[string]any) error {
	path, err := s.collection(table)
	if err != nil {
		return err
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(partial).
		Patch(path + "/" + url.PathEscape(id))
	return CheckResponse(resp, err)
}

// Delete removes one row
func (s *Store) Delete(ctx context.Context, table, id string) error {
	path, err := s.collection(table)
	if err != nil {
		return err
	}

	resp, err := s.http.R().
		SetContext(ctx).
		Delete(path + "/" + url.PathEscape(id))
	return CheckResponse(resp, err)
}

func decodeItem(resp *resty.Response, table string) (remote.Item, error) {
	var row map[string]any
	if err := decode(resp, &row); err != nil {
		return remote.Item{}, err
	}
	item, err := remote.DecodeRow(table, row)
	if err != nil {
		return remote.Item{}, cuberrors.New(cuberrors.ErrorTypeUnknown, "malformed row from server", err)
	}
	return item, nil
}
