package stt

import (
	"context"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

// NewWithRecognizer builds a service around an injected recognize call.
// The retry backoff is shortened so retry paths stay fast under test.
func NewWithRecognizer(fn func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error), opts ...Option) Service {
	c := newClient(opts...)
	c.recognize = fn
	c.backoffBase = time.Millisecond
	return c
}
