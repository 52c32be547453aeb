package dispatch

import (
	"context"

	"github.com/markdave123-py/zapdesk/internal/models"
)

// Queue accepts inbound messages for asynchronous processing.
type Queue interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(ctx context.Context, msg models.InboundMessage) error
	Stop()
}

// Handler processes one inbound message.
type Handler func(ctx context.Context, msg models.InboundMessage) error
