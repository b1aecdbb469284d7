package protocol

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/benmeehan/herd-proxy/internal/constants"
	"github.com/benmeehan/herd-proxy/internal/models"
)

var (
	coordinateRe = regexp.MustCompile(`^([+-][0-9]{1,3}(?:\.[0-9]{1,10})?)([+-][0-9]{1,3}(?:\.[0-9]{1,10})?)$`)
	timestampRe  = regexp.MustCompile(`^(?:[0-9]+\.?[0-9]*|\.[0-9]+)$`)
	countRe      = regexp.MustCompile(`^[0-9]+$`)
)

// Request is one parsed protocol message.
type Request interface {
	Command() string
}

// IAmAt is a client reporting its own position.
type IAmAt struct {
	ClientID      string
	RawCoordinate string
	RawTimestamp  string
	Latitude      float64
	Longitude     float64
	ClientTime    float64
}

// WhatsAt is a client asking for places near another client.
type WhatsAt struct {
	ClientID string
	RadiusKm int
	Limit    int
}

// At is a flood message received from a peer server.
type At struct {
	models.FloodMessage
	Latitude   float64
	Longitude  float64
	ClientTime float64
}

func (*IAmAt) Command() string   { return constants.CommandIAmAt }
func (*WhatsAt) Command() string { return constants.CommandWhatsAt }
func (*At) Command() string      { return constants.CommandAt }

// Record returns the location record an IAMAT stores.
func (r *IAmAt) Record() models.LocationRecord {
	return models.LocationRecord{
		ClientID:      r.ClientID,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		RawCoordinate: r.RawCoordinate,
		RawTimestamp:  r.RawTimestamp,
		ClientTime:    r.ClientTime,
	}
}

// Record returns the location record an AT message stores.
func (r *At) Record() models.LocationRecord {
	return r.FloodMessage.Record(r.Latitude, r.Longitude, r.ClientTime)
}

// Parse turns one raw request line into a typed request.
// Every error it returns wraps ErrMalformedRequest.
func Parse(raw string) (Request, error) {
	tokens := strings.Fields(raw)
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: expected a command and arguments", ErrMalformedRequest)
	}

	switch tokens[0] {
	case constants.CommandIAmAt:
		return parseIAmAt(tokens)
	case constants.CommandWhatsAt:
		return parseWhatsAt(tokens)
	case constants.CommandAt:
		return parseAt(tokens)
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrMalformedRequest, tokens[0])
	}
}

func parseIAmAt(tokens []string) (*IAmAt, error) {
	if len(tokens) != constants.IAmAtTokens {
		return nil, fmt.Errorf("%w: IAMAT takes %d fields, got %d", ErrMalformedRequest, constants.IAmAtTokens-1, len(tokens)-1)
	}

	clientTime, err := ParseTimestamp(tokens[3])
	if err != nil {
		return nil, err
	}

	lat, long, err := ParseCoordinate(tokens[2])
	if err != nil {
		return nil, err
	}

	return &IAmAt{
		ClientID:      tokens[1],
		RawCoordinate: tokens[2],
		RawTimestamp:  tokens[3],
		Latitude:      lat,
		Longitude:     long,
		ClientTime:    clientTime,
	}, nil
}

func parseWhatsAt(tokens []string) (*WhatsAt, error) {
	if len(tokens) != constants.WhatsAtTokens {
		return nil, fmt.Errorf("%w: WHATSAT takes %d fields, got %d", ErrMalformedRequest, constants.WhatsAtTokens-1, len(tokens)-1)
	}

	radius, err := parseCount(tokens[2], "radius")
	if err != nil {
		return nil, err
	}
	if radius > constants.MaxRadiusKm {
		return nil, fmt.Errorf("%w: radius %d exceeds %dkm", ErrMalformedRequest, radius, constants.MaxRadiusKm)
	}

	limit, err := parseCount(tokens[3], "result limit")
	if err != nil {
		return nil, err
	}
	if limit > constants.MaxResultLimit {
		return nil, fmt.Errorf("%w: result limit %d exceeds %d", ErrMalformedRequest, limit, constants.MaxResultLimit)
	}

	return &WhatsAt{
		ClientID: tokens[1],
		RadiusKm: radius,
		Limit:    limit,
	}, nil
}

func parseAt(tokens []string) (*At, error) {
	if len(tokens) != constants.AtTokens {
		return nil, fmt.Errorf("%w: AT takes %d fields, got %d", ErrMalformedRequest, constants.AtTokens-1, len(tokens)-1)
	}

	hops, err := parseCount(tokens[2], "hop budget")
	if err != nil {
		return nil, err
	}

	lat, long, err := ParseCoordinate(tokens[4])
	if err != nil {
		return nil, err
	}

	clientTime, err := ParseTimestamp(tokens[5])
	if err != nil {
		return nil, err
	}

	return &At{
		FloodMessage: models.FloodMessage{
			Origin:        tokens[1],
			HopBudget:     hops,
			ClientID:      tokens[3],
			RawCoordinate: tokens[4],
			RawTimestamp:  tokens[5],
		},
		Latitude:   lat,
		Longitude:  long,
		ClientTime: clientTime,
	}, nil
}

// ParseCoordinate splits a token such as "+34.068930-118.445127" into
// latitude and longitude.
func ParseCoordinate(token string) (float64, float64, error) {
	m := coordinateRe.FindStringSubmatch(token)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q is not a coordinate", ErrMalformedRequest, token)
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude %q: %v", ErrMalformedRequest, m[1], err)
	}
	long, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude %q: %v", ErrMalformedRequest, m[2], err)
	}
	return lat, long, nil
}

// ParseTimestamp accepts a nonnegative decimal with at most one dot.
func ParseTimestamp(token string) (float64, error) {
	if !timestampRe.MatchString(token) {
		return 0, fmt.Errorf("%w: %q is not a valid time", ErrMalformedRequest, token)
	}
	ts, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q: %v", ErrMalformedRequest, token, err)
	}
	return ts, nil
}

func parseCount(token, field string) (int, error) {
	if !countRe.MatchString(token) {
		return 0, fmt.Errorf("%w: %s %q must be a nonnegative integer", ErrMalformedRequest, field, token)
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrMalformedRequest, field, token, err)
	}
	return n, nil
}
