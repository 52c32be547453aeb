package objectclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/models"
)

// Transcript is the document written for a closed conversation.
type Transcript struct {
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
	ArchivedAt   time.Time           `json:"archived_at"`
}

// TranscriptArchiver writes transcripts as JSON objects into one bucket.
type TranscriptArchiver struct {
	obj    core.ObjectClient
	bucket string
	now    func() time.Time
}

var _ core.TranscriptArchiver = (*TranscriptArchiver)(nil)

func NewTranscriptArchiver(obj core.ObjectClient, bucket string) *TranscriptArchiver {
	return &TranscriptArchiver{obj: obj, bucket: bucket, now: time.Now}
}

func TranscriptKey(conversationID string) string {
	return fmt.Sprintf("conversations/%s/transcript.json", conversationID)
}

func (a *TranscriptArchiver) Archive(ctx context.Context, conv *models.Conversation, msgs []models.Message) (string, error) {
	if conv == nil {
		return "", fmt.Errorf("archive: nil conversation")
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	body, err := json.MarshalIndent(Transcript{
		Conversation: *conv,
		Messages:     msgs,
		ArchivedAt:   a.now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}

	url, err := a.obj.UploadFile(ctx, a.bucket, TranscriptKey(conv.ID), bytes.NewReader(body), "application/json")
	if err != nil {
		return "", fmt.Errorf("archive conversation %s: %w", conv.ID, err)
	}
	return url, nil
}
