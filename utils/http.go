package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the background workers that talk to the
// league's profile service.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
