package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AnshRaj112/propertyhub-backend/internal/apperror"
	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
)

// Query parameters that shape a listing instead of filtering it.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamOrder  = "order"
)

type PropertyService struct {
	tables provider.Tables
}

func NewPropertyService(tables provider.Tables) *PropertyService {
	return &PropertyService{tables: tables}
}

// ListFilter turns listing query parameters into a provider filter. Every
// parameter except limit, offset and order is an equality constraint.
func ListFilter(query url.Values) (provider.Filter, error) {
	filter := provider.Filter{Eq: map[string]string{}}
	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch key {
		case ParamLimit, ParamOffset:
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return provider.Filter{}, apperror.Validation(key + " must be a non-negative integer")
			}
			if key == ParamLimit {
				filter.Limit = n
			} else {
				filter.Offset = n
			}
		case ParamOrder:
			filter.Order = value
		default:
			filter.Eq[key] = value
		}
	}
	return filter, nil
}

func (s *PropertyService) List(ctx context.Context, query url.Values) ([]provider.Row, error) {
	filter, err := ListFilter(query)
	if err != nil {
		return nil, err
	}
	rows, err := s.tables.Select(ctx, provider.TableProperties, filter)
	if err != nil {
		return nil, tableError(err)
	}
	return rows, nil
}

func (s *PropertyService) Get(ctx context.Context, id string) (provider.Row, error) {
	rows, err := s.tables.Select(ctx, provider.TableProperties, provider.ByID(id))
	if err != nil {
		return nil, tableError(err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("Property not found")
	}
	return rows[0], nil
}

// Create stores a listing owned by ownerID. Client-supplied id and owner_id are ignored.
func (s *PropertyService) Create(ctx context.Context, ownerID string, data provider.Row) (provider.Row, error) {
	row := without(data, "id", "owner_id")
	if len(row) == 0 {
		return nil, apperror.Validation("Property data is required")
	}
	row["owner_id"] = ownerID

	created, err := s.tables.Insert(ctx, provider.TableProperties, row)
	if err != nil {
		return nil, tableError(err)
	}
	return created, nil
}

func (s *PropertyService) Update(ctx context.Context, ownerID, id string, patch provider.Row) (provider.Row, error) {
	changes := without(patch, "id", "owner_id")
	if len(changes) == 0 {
		return nil, apperror.Validation("No fields to update")
	}
	rows, err := s.tables.Update(ctx, provider.TableProperties, ownedBy(id, ownerID), changes)
	if err != nil {
		return nil, tableError(err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("Property not found")
	}
	return rows[0], nil
}

func (s *PropertyService) Delete(ctx context.Context, ownerID, id string) error {
	rows, err := s.tables.Delete(ctx, provider.TableProperties, ownedBy(id, ownerID))
	if err != nil {
		return tableError(err)
	}
	if len(rows) == 0 {
		return apperror.NotFound("Property not found")
	}
	return nil
}

func ownedBy(id, ownerID string) provider.Filter {
	return provider.Filter{Eq: map[string]string{"id": id, "owner_id": ownerID}}
}

func without(row provider.Row, keys ...string) provider.Row {
	out := make(provider.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// tableError keeps the provider's client-side statuses (bad column, RLS
// denial) and reports everything else as an upstream failure.
func tableError(err error) error {
	var perr *provider.Error
	if !errors.As(err, &perr) {
		return upstream(err)
	}
	switch {
	case perr.Status == http.StatusUnauthorized:
		return apperror.Wrap(apperror.KindUnauthenticated, perr.Message, err)
	case perr.Status == http.StatusForbidden:
		return apperror.Wrap(apperror.KindAuthorization, perr.Message, err)
	case perr.Status == http.StatusNotFound:
		return apperror.Wrap(apperror.KindNotFound, perr.Message, err)
	case perr.Status >= 400 && perr.Status < 500 && perr.Code != provider.CodeUniqueViolation:
		return apperror.Wrap(apperror.KindValidation, perr.Message, err)
	default:
		return upstream(err)
	}
}
