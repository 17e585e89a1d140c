package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dist-rpc/message"
)

// LoggingMiddleware logs every handled request with its type, id and duration.
// Exception responses are logged at warn level with their text. A nil response
// from further down the chain is replaced by an exception response.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			start := time.Now()
			resp := next(ctx, req)
			if resp == nil {
				resp = reject(req, "no response for "+req.Type().String())
			}
			fields := []zap.Field{
				zap.Stringer("type", req.Type()),
				zap.Int64("id", req.ID()),
				zap.Int("payload_bytes", len(req.Payload())),
				zap.Int("blobs", len(req.Blobs())),
				zap.Duration("duration", time.Since(start)),
			}
			if err := resp.RemoteError(); err != nil {
				logger.Warn("request failed", append(fields, zap.Error(err))...)
				return resp
			}
			logger.Debug("request handled", append(fields, zap.Stringer("response_type", resp.Type()))...)
			return resp
		}
	}
}
