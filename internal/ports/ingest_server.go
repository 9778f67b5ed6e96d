package ports

// IngestServer is a transport that feeds messages into the ingestion
// pipeline (HTTP webhook, SMTP listener).
type IngestServer interface {
	// Start begins accepting traffic. Non-blocking.
	Start() error

	// Stop shuts the transport down.
	Stop() error
}
