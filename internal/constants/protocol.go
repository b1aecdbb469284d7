package constants

import "time"

// Request keywords.
const (
	CommandIAmAt   = "IAMAT"
	CommandWhatsAt = "WHATSAT"
	CommandAt      = "AT"
)

// Token counts per request kind, keyword included.
const (
	IAmAtTokens   = 4
	WhatsAtTokens = 4
	AtTokens      = 6
)

const (
	// FailurePrefix marks a response to a request that could not be served.
	FailurePrefix = "(?) "

	// MaxRadiusKm is the largest WHATSAT search radius accepted.
	MaxRadiusKm = 50

	// MaxResultLimit is the largest number of places a WHATSAT may ask for.
	MaxResultLimit = 20
)

const (
	DefaultMaxRequestBytes = 1024
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultDialTimeout     = 3 * time.Second
	DefaultPeerIOTimeout   = 3 * time.Second
	DefaultPlacesTimeout   = 5 * time.Second
	DefaultPlacesWorkers   = 8
	DefaultStatsInterval   = time.Minute

	// MaxReplyBytes bounds how much of a peer or server reply herdclient reads.
	MaxReplyBytes = 1 << 20
)
