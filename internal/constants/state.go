package constants

// ConnState is the lifecycle state of one inbound connection.
type ConnState string

const (
	ConnIdle        ConnState = "idle"
	ConnReading     ConnState = "reading"
	ConnDispatching ConnState = "dispatching"
	ConnWriting     ConnState = "writing"
	ConnClosed      ConnState = "closed"
)
