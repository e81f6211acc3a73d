package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/oraclespainpresales/chatboteventhandler/pkg/domain"
	"github.com/oraclespainpresales/chatboteventhandler/pkg/store"
)

// DefaultPort is where the status endpoint listens.
const DefaultPort = 3379

// StoreFinder resolves a zone id to its aggregation store.
type StoreFinder interface {
	Store(id string) (*store.Store, bool)
}

// Status is the composite answer for one zone, computed fresh on every
// request.
type Status struct {
	Speed    []domain.SpeedAggregate `json:"speed"`
	Lap      []domain.LapAggregate   `json:"lap"`
	Offtrack []domain.OfftrackEvent  `json:"offtrack"`
}

// Handler builds the status router.
func Handler(zones StoreFinder, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/status/{demozone}", func(w http.ResponseWriter, req *http.Request) {
		zone := chi.URLParam(req, "demozone")
		log.Debug().Str("zone", zone).Msg("status request")

		st, ok := zones.Store(zone)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		status := Status{
			Speed:    st.SpeedAggregates(),
			Lap:      st.LapAggregates(),
			Offtrack: st.Offtracks(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Err(err).Str("zone", zone).Msg("failed to write status response")
		}
	})

	return r
}
