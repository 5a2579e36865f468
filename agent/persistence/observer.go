package persistence

import (
	"context"

	"github.com/BaSui01/roundtable/agent/notify"
)

// NewStoreObserver archives every notification of one session into store.
func NewStoreObserver(store TranscriptStore, sessionID string) notify.Observer {
	return notify.ObserverFunc(func(ctx context.Context, n notify.Notification) error {
		id := sessionID
		if n.SessionID != "" {
			id = n.SessionID
		}
		return store.Append(ctx, id, Entry{
			Index:     n.Index,
			Sender:    n.Sender,
			Content:   n.Content,
			Kind:      n.Kind,
			Timestamp: n.Timestamp,
		})
	})
}
