package models

// LocationRecord is the last-known position of a client as held by one server.
type LocationRecord struct {
	ClientID      string  `json:"client_id"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	RawCoordinate string  `json:"coordinates"` // coordinate token exactly as received
	RawTimestamp  string  `json:"time"`        // client timestamp token exactly as received
	ClientTime    float64 `json:"client_time"` // parsed client timestamp, seconds since epoch
}
