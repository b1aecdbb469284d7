package state_managers

import (
	"github.com/benmeehan/herd-proxy/internal/models"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// LocationStore holds the last-known location of every client this server has heard about.
// It lives exactly as long as the server process that owns it.
type LocationStore struct {
	records     cmap.ConcurrentMap[string, models.LocationRecord]
	rejectStale bool
	logger      zerolog.Logger
}

// NewLocationStore initializes an empty LocationStore. When rejectStale is set,
// an update carrying an older client timestamp than the stored one is ignored;
// otherwise every write replaces the previous record.
func NewLocationStore(rejectStale bool, logger zerolog.Logger) *LocationStore {
	return &LocationStore{
		records:     cmap.New[models.LocationRecord](),
		rejectStale: rejectStale,
		logger:      logger,
	}
}

// Upsert stores the record for its client and reports whether it was applied.
func (s *LocationStore) Upsert(record models.LocationRecord) bool {
	applied := true
	s.records.Upsert(record.ClientID, record, func(exists bool, current, incoming models.LocationRecord) models.LocationRecord {
		if exists && s.rejectStale && incoming.ClientTime < current.ClientTime {
			applied = false
			return current
		}
		return incoming
	})

	if !applied {
		s.logger.Debug().
			Str("client", record.ClientID).
			Str("time", record.RawTimestamp).
			Msg("Ignored stale location update")
		return false
	}

	s.logger.Debug().
		Str("client", record.ClientID).
		Str("coordinates", record.RawCoordinate).
		Str("time", record.RawTimestamp).
		Msg("Location updated")
	return true
}

// Get returns the stored record for a client.
func (s *LocationStore) Get(clientID string) (models.LocationRecord, bool) {
	return s.records.Get(clientID)
}

// Count returns the number of clients tracked.
func (s *LocationStore) Count() int {
	return s.records.Count()
}
