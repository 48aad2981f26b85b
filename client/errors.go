package client

import (
	"errors"
	"fmt"

	"ev3-dog/message"
)

var (
	ErrNotConnected     = errors.New("client: not connected")
	ErrAlreadyConnected = errors.New("client: already connected")
	ErrSequenceMismatch = errors.New("client: result does not answer the pending call")
	ErrUnexpectedPong   = errors.New("client: unexpected reply to PING")
)

// RemoteError is a 500-class response raised to the caller.
type RemoteError struct {
	Kind    message.ErrorKind
	Class   string // Class name of the failure on the remote side, e.g. "ArgumentError"
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s: %s", e.Kind, e.Class, e.Message)
}

func remoteError(resp *message.Response) *RemoteError {
	text, ok := resp.Data.(string)
	if !ok {
		text = fmt.Sprint(resp.Data)
	}
	return &RemoteError{Kind: resp.Kind, Class: resp.Message, Message: text}
}
