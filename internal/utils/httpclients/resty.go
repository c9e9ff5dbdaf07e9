package httpclients

import (
	"context"
	"time"

	"resty.dev/v3"

	"chat-client/internal/infrastructure/logger"
)

type RequestID struct{}
type startsAtKey struct{}

// NewClient builds a resty client with debug logging of every outbound
// request. clientName shows up in the logs so concurrent clients can be
// told apart.
func NewClient(clientName string) *resty.Client {
	client := resty.New()
	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startsAtKey{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		log := logger.GetLogger()

		requestIDStr := ""
		if reqID, ok := r.Request.Context().Value(RequestID{}).(string); ok {
			requestIDStr = reqID
		}
		startTime, _ := r.Request.Context().Value(startsAtKey{}).(time.Time)

		log.Debug().
			Str("request_id", requestIDStr).
			Str("client", clientName).
			Int("status", r.StatusCode()).
			Str("method", r.Request.RawRequest.Method).
			Str("path", r.Request.RawRequest.URL.Path).
			Dur("latency", time.Since(startTime)).
			Msg("HTTP client request")
		return nil
	})
	return client
}
