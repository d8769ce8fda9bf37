package approval

import (
	"context"

	"github.com/viant/orchestra/service/messaging"
)

// Service gates flow continuation on user approval. A PAUSE decision from
// the oracle files a Request; Decide resolves it, resuming the flow when
// approved.
type Service interface {
	RequestApproval(ctx context.Context, r *Request) error
	ListPending(ctx context.Context) ([]*Request, error)
	Decide(ctx context.Context, id string, approved bool, reason string) (*Decision, error)
	Queue() messaging.Queue[Event]
}
