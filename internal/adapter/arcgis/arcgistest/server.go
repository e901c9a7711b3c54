// Package arcgistest provides an in-process fake of an ArcGIS layer query
// endpoint for tests and local runs.
package arcgistest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	geojson "github.com/paulmach/go.geojson"
)

var whereInRe = regexp.MustCompile(`^OBJECTID IN \(([\d,\s]*)\)$`)

// Server answers id-only and OBJECTID IN (...) geojson queries from a fixed
// feature set keyed by object id.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	ids      []int64
	features map[int64]*geojson.Feature
	requests []query
	// FailBatch, when > 0, makes the n-th feature query (1-based) answer 500.
	FailBatch int
	// BatchError, when set, is returned as an ArcGIS error envelope on every
	// feature query.
	BatchError string
}

type query struct {
	Format string
	IDs    int
}

// NewServer starts a fake serving features, in id order.
func NewServer(features map[int64]*geojson.Feature) *Server {
	s := &Server{features: features}
	for id := range features {
		s.ids = append(s.ids, id)
	}
	slices.Sort(s.ids)
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// QueryURL is the layer query endpoint of the fake.
func (s *Server) QueryURL() string { return s.URL + "/arcgis/rest/services/PORTAL/WFS/MapServer/0/query" }

// BatchSizes returns the number of ids requested by each feature query so far.
func (s *Server) BatchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sizes []int
	for _, r := range s.requests {
		if r.Format == "geojson" {
			sizes = append(sizes, r.IDs)
		}
	}
	return sizes
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("returnIdsOnly") == "true" {
		s.record(query{Format: q.Get("f")})
		writeJSON(w, http.StatusOK, map[string]any{"objectIdFieldName": "OBJECTID", "objectIds": s.ids})
		return
	}

	m := whereInRe.FindStringSubmatch(q.Get("where"))
	if q.Get("f") != "geojson" || m == nil {
		writeJSON(w, http.StatusOK, errorEnvelope(400, "Unable to complete operation."))
		return
	}

	ids := parseIDs(m[1])
	n := s.record(query{Format: "geojson", IDs: len(ids)})
	if s.FailBatch > 0 && n == s.FailBatch {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if s.BatchError != "" {
		writeJSON(w, http.StatusOK, errorEnvelope(400, s.BatchError))
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		if f, ok := s.features[id]; ok {
			fc.AddFeature(f)
		}
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// record stores a request and returns the number of feature queries so far.
func (s *Server) record(q query) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, q)
	n := 0
	for _, r := range s.requests {
		if r.Format == "geojson" {
			n++
		}
	}
	return n
}

func parseIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func errorEnvelope(code int, msg string) map[string]any {
	return map[string]any{"error": map[string]any{"code": code, "message": msg, "details": []string{}}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // test fake
}
