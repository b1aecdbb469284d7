package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benmeehan/herd-proxy/internal/constants"
	"github.com/benmeehan/herd-proxy/internal/models"
)

// FormatAT builds the status line for a stored record:
// "AT <server> <±delta> <client> <coordinate> <timestamp>".
func FormatAT(serverID string, now time.Time, record models.LocationRecord) string {
	delta := float64(now.UnixNano())/float64(time.Second) - record.ClientTime
	return fmt.Sprintf("%s %s %s %s %s %s",
		constants.CommandAt,
		serverID,
		FormatDelta(delta),
		record.ClientID,
		record.RawCoordinate,
		record.RawTimestamp,
	)
}

// FormatDelta renders a time difference in seconds, with an explicit "+"
// when it is not negative.
func FormatDelta(seconds float64) string {
	s := strconv.FormatFloat(seconds, 'f', -1, 64)
	if seconds >= 0 {
		return "+" + s
	}
	return s
}

// FormatFlood renders a flood message as the AT line sent to a peer.
func FormatFlood(msg models.FloodMessage) string {
	return fmt.Sprintf("%s %s %d %s %s %s\n",
		constants.CommandAt,
		msg.Origin,
		msg.HopBudget,
		msg.ClientID,
		msg.RawCoordinate,
		msg.RawTimestamp,
	)
}

// FormatFailure echoes the original request behind the failure marker.
func FormatFailure(raw string) string {
	resp := constants.FailurePrefix + raw
	if !strings.HasSuffix(resp, "\n") {
		resp += "\n"
	}
	return resp
}
