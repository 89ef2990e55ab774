package interfaces

import "net/http"

// HTTPHandler is the transport the server binary mounts.
type HTTPHandler interface {
	http.Handler
}
