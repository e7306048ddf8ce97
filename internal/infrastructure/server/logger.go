package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
)

// InterceptorLogger adapts a logrus logger to the grpc logging middleware.
func InterceptorLogger(logger logrus.FieldLogger) logging.Logger {
	return logging.LoggerFunc(func(_ context.Context, lvl logging.Level, msg string, fields ...any) {
		f := make(logrus.Fields, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			f[fmt.Sprint(fields[i])] = fields[i+1]
		}
		entry := logger.WithFields(f)
		switch lvl {
		case logging.LevelDebug:
			entry.Debug(msg)
		case logging.LevelInfo:
			entry.Info(msg)
		case logging.LevelWarn:
			entry.Warn(msg)
		default:
			entry.Error(msg)
		}
	})
}

// Logger logs every unary connect call and records its RPC metrics.
func Logger(logger logrus.FieldLogger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			duration := time.Since(start)
			code := codeLabel(err)
			procedure := req.Spec().Procedure
			metrics.RPCRequests.WithLabelValues(procedure, code).Inc()
			metrics.RPCDuration.WithLabelValues(procedure).Observe(duration.Seconds())

			entry := logger.WithFields(requestFields(req, code, duration))
			entry = entry.WithFields(responseFields(resp))
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Log(determineLogLevel(err), "request completed")
			return resp, err
		}
	}
}

func codeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return connect.CodeOf(err).String()
}

func determineLogLevel(err error) logrus.Level {
	if err == nil {
		return logrus.InfoLevel
	}
	switch connect.CodeOf(err) {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeNotFound,
		connect.CodeAlreadyExists, connect.CodePermissionDenied, connect.CodeUnauthenticated,
		connect.CodeAborted:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

func requestFields(req connect.AnyRequest, code string, duration time.Duration) logrus.Fields {
	fields := logrus.Fields{
		"procedure": req.Spec().Procedure,
		"status":    code,
		"duration":  duration.String(),
	}
	setField(fields, "http_method", req.HTTPMethod())
	peer := req.Peer()
	setField(fields, "peer_addr", peer.Addr)
	setField(fields, "protocol", peer.Protocol)

	header := req.Header()
	setField(fields, "user_agent", header.Get("User-Agent"))
	setField(fields, "request_id", header.Get("X-Request-Id"))
	setField(fields, "client_ip", firstForwardedFor(header))
	if cl := contentLength(header); cl >= 0 {
		fields["request_bytes"] = cl
	}
	return fields
}

func responseFields(resp connect.AnyResponse) logrus.Fields {
	fields := logrus.Fields{}
	if resp == nil {
		return fields
	}
	if cl := contentLength(resp.Header()); cl >= 0 {
		fields["response_bytes"] = cl
	}
	return fields
}

func setField(fields logrus.Fields, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

func firstForwardedFor(header http.Header) string {
	for _, part := range strings.Split(header.Get("X-Forwarded-For"), ",") {
		if candidate := strings.TrimSpace(part); candidate != "" {
			return candidate
		}
	}
	return ""
}

func contentLength(header http.Header) int {
	if header == nil {
		return -1
	}
	if cl := header.Get("Content-Length"); cl != "" {
		if parsed, err := strconv.Atoi(cl); err == nil {
			return parsed
		}
	}
	return -1
}

// NewLogger builds a configured logrus logger from application config.
func NewLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}
