package stt

import (
	"context"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
)

// Error codes reported to the capture machine
const (
	CodeNetwork = "network"
	CodeEngine  = "engine"
)

// stream is the part of the Deepgram websocket client a session uses
type stream interface {
	Connect() bool
	Write(p []byte) (int, error)
	Finish()
}

// streamFactory opens a Deepgram stream for a recognition language and
// delivers engine messages to callback
type streamFactory func(ctx context.Context, language string, callback msginterfaces.LiveMessageCallback) (stream, error)
