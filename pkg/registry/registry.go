package registry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/oraclespainpresales/chatboteventhandler/pkg/domain"
	"github.com/oraclespainpresales/chatboteventhandler/pkg/session"
	"github.com/oraclespainpresales/chatboteventhandler/pkg/store"
)

// DirectoryPath is where the setup database exposes the demozone list.
const DirectoryPath = "/apex/pdb1/anki/demozone/zone/"

const lookupTimeout = 30 * time.Second

// ErrNoZones means the directory answered but listed nothing to serve.
var ErrNoZones = errors.New("no demozones found")

// Registry maps zone id to its live session. Populated once at startup,
// read-only afterwards.
type Registry struct {
	sessions map[string]*session.Session
	zones    []domain.Zone
}

type directoryItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProxyPort int    `json:"proxyport"`
}

type directoryResponse struct {
	Items []directoryItem `json:"items"`
}

// FetchZones does the one blocking directory lookup. Empty or absent
// items is an error: with no zones there is nothing to serve.
func FetchZones(ctx context.Context, baseURL string) ([]domain.Zone, error) {
	// the setup DB serves a self-signed certificate
	client := &http.Client{
		Timeout: lookupTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+DirectoryPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory lookup failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory lookup failed: status %d", res.StatusCode)
	}

	var dir directoryResponse
	if err = json.NewDecoder(res.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}

	if len(dir.Items) == 0 {
		return nil, ErrNoZones
	}

	zones := make([]domain.Zone, 0, len(dir.Items))
	for _, it := range dir.Items {
		zones = append(zones, domain.Zone{
			ID:   it.ID,
			Name: it.Name,
			Port: (it.ProxyPort % 100) + 10000,
		})
	}

	return zones, nil
}

// Build resolves the zone list from the setup DB and dials one session
// per zone. Zones are independent: one zone failing to dial is logged
// and skipped, the rest still come up.
func Build(ctx context.Context, dbhost, eventserver string, log zerolog.Logger) (*Registry, error) {
	zones, err := FetchZones(ctx, "https://"+dbhost)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		sessions: make(map[string]*session.Session, len(zones)),
		zones:    zones,
	}

	for _, z := range zones {
		s, err := session.Dial(z, eventserver, log.With().Str("zone", z.Name).Logger())
		if err != nil {
			log.Error().Err(err).Str("zone", z.ID).Msg("failed to dial zone, skipping")
			continue
		}
		r.sessions[z.ID] = s
	}

	return r, nil
}

// Session looks up the live session for a zone id.
func (r *Registry) Session(id string) (*session.Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Store looks up the aggregation store for a zone id.
func (r *Registry) Store(id string) (*store.Store, bool) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Store, true
}

// Zones returns the resolved zone list, dialed or not.
func (r *Registry) Zones() []domain.Zone {
	return r.zones
}

// Close stops every zone session.
func (r *Registry) Close() {
	for _, s := range r.sessions {
		s.Close()
	}
}
