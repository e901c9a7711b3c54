package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/skypies/geo"

	"github.com/couchcryptid/wind-turbine-etl/internal/domain"
)

// ErrMissingObjectIDs is returned when an id-only response has no objectIds key.
var ErrMissingObjectIDs = errors.New("response has no objectIds")

// APIError reports a non-200 status or an ArcGIS error envelope.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("arcgis error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("arcgis API error: status %d: %s", e.StatusCode, e.Message)
}

// Client queries a single ArcGIS MapServer/FeatureServer layer.
// It implements pipeline.Source.
type Client struct {
	queryURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the layer query endpoint queryURL.
func NewClient(queryURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		queryURL: queryURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ListObjectIDs returns every object id of the layer.
func (c *Client) ListObjectIDs(ctx context.Context) ([]domain.ObjectID, error) {
	params := url.Values{
		"f":             {"json"},
		"where":         {"1=1"},
		"returnIdsOnly": {"true"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list object ids: %w", err)
	}

	var resp idsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode object ids: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("list object ids: %w", resp.Error.asError())
	}
	if resp.ObjectIDs == nil {
		return nil, ErrMissingObjectIDs
	}

	// A layer without rows answers "objectIds": null.
	var ids []domain.ObjectID
	if err := json.Unmarshal(resp.ObjectIDs, &ids); err != nil {
		return nil, fmt.Errorf("decode object ids: %w", err)
	}
	if ids == nil {
		ids = []domain.ObjectID{}
	}

	c.logger.Debug("object ids listed", "count", len(ids))
	return ids, nil
}

// FetchBatch returns the features for ids with all attributes and geometry,
// in the order the service sends them.
func (c *Client) FetchBatch(ctx context.Context, ids []domain.ObjectID) ([]domain.Turbine, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{
		"f":              {"geojson"},
		"where":          {WhereObjectIDs(ids)},
		"outFields":      {"*"},
		"returnGeometry": {"true"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetch batch: %w", err)
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("fetch batch: %w", envelope.Error.asError())
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode feature collection: unexpected type %q", fc.Type)
	}

	order, err := propertyOrder(body)
	if err != nil {
		return nil, fmt.Errorf("decode feature properties: %w", err)
	}

	turbines := make([]domain.Turbine, 0, len(fc.Features))
	for i, f := range fc.Features {
		t := featureToTurbine(f)
		if len(order) == len(fc.Features) {
			t.Fields = order[i]
		}
		turbines = append(turbines, t)
	}
	return turbines, nil
}

// propertyOrder returns the property keys of every feature in body, in the
// order the service wrote them. Decoding into a map loses that order.
func propertyOrder(body []byte) ([][]string, error) {
	var raw struct {
		Features []struct {
			Properties json.RawMessage `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	order := make([][]string, len(raw.Features))
	for i, f := range raw.Features {
		keys, err := objectKeys(f.Properties)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		order[i] = keys
	}
	return order, nil
}

// objectKeys walks the top-level keys of a JSON object. null or an absent
// value yields no keys.
func objectKeys(obj json.RawMessage) ([]string, error) {
	if len(obj) == 0 || string(obj) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(obj))
	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if tok != json.Delim('{') {
		return nil, fmt.Errorf("properties: expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("properties: unexpected token %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// WhereObjectIDs builds the OBJECTID IN (...) filter for ids.
func WhereObjectIDs(ids []domain.ObjectID) string {
	var b strings.Builder
	b.WriteString("OBJECTID IN (")
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(id), 10))
	}
	b.WriteByte(')')
	return b.String()
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
	}
	return body, nil
}

func featureToTurbine(f *geojson.Feature) domain.Turbine {
	attrs := make(map[string]any, len(f.Properties))
	for k, v := range f.Properties {
		attrs[k] = v
	}

	t := domain.Turbine{Attributes: attrs}
	if f.Geometry != nil && f.Geometry.IsPoint() && len(f.Geometry.Point) >= 2 {
		t.Position = &geo.Latlong{Lat: f.Geometry.Point[1], Long: f.Geometry.Point[0]}
	}
	return t
}

// ArcGIS REST response types.

type idsResponse struct {
	ObjectIDs json.RawMessage `json:"objectIds"`
	Error     *errorBody      `json:"error"`
}

type errorEnvelope struct {
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *errorBody) asError() *APIError {
	msg := e.Message
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return &APIError{StatusCode: http.StatusOK, Code: e.Code, Message: msg}
}
