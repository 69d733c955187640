package protocol

import (
	"context"
	"net/http"
)

// HTTPDoer issues HTTP requests for action handlers. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Mailer delivers notification messages for the email action handler.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Dependencies bundles the collaborators handed to handler factories.
type Dependencies struct {
	HTTPClient HTTPDoer
	Mailer     Mailer
}
