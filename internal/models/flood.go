package models

// FloodMessage is a location update travelling between herd servers.
type FloodMessage struct {
	Origin        string // id of the server that sent this hop
	HopBudget     int    // remaining forwarding hops
	ClientID      string
	RawCoordinate string
	RawTimestamp  string
}

// Record converts the flood message into the record stored locally.
func (m FloodMessage) Record(latitude, longitude, clientTime float64) LocationRecord {
	return LocationRecord{
		ClientID:      m.ClientID,
		Latitude:      latitude,
		Longitude:     longitude,
		RawCoordinate: m.RawCoordinate,
		RawTimestamp:  m.RawTimestamp,
		ClientTime:    clientTime,
	}
}
