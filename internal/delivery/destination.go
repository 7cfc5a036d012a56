// ABOUTME: Contracts between the delivery pipeline and a destination page
// ABOUTME: A destination is one opened context that can be probed for its composer
package delivery

import "context"

// InsertStatus is the result of one in-page probe
type InsertStatus string

const (
	// InsertNotFound means no composer exists yet
	InsertNotFound InsertStatus = "not_found"
	// InsertInserted means the text was written into an empty composer
	InsertInserted InsertStatus = "inserted"
	// InsertHasContent means the composer already held text; the user was notified
	InsertHasContent InsertStatus = "has_content"
	// InsertConsumed means this request ID was already handled in this context
	InsertConsumed InsertStatus = "consumed"
)

// Payload is handed to the page as call arguments, never through page globals
type Payload struct {
	Text      string `json:"text"`
	RequestID string `json:"requestId"`
}

// Opener creates a fresh destination context for url
type Opener interface {
	Open(ctx context.Context, url string) (Destination, error)
}

// Destination is one opened page
type Destination interface {
	// WaitLoad blocks until the page reports load-complete
	WaitLoad(ctx context.Context) error
	// Insert runs one atomic probe: check-then-set of the consumed marker,
	// composer lookup and insertion
	Insert(ctx context.Context, p Payload) (InsertStatus, error)
	// Changes streams structural changes of the page until ctx ends
	Changes(ctx context.Context) <-chan struct{}
	// Gone is closed when the page is closed or navigated away for good
	Gone() <-chan struct{}
	// Close releases observation resources; the page itself stays open
	Close() error
}
