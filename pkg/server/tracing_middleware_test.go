package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestTracingUnaryInterceptor(t *testing.T) {
	interceptor := TracingUnaryInterceptor(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/truthmeter.v1.TruthMeter/ListSecrets"}

	t.Run("GeneratesRequestID", func(t *testing.T) {
		var seen string
		_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
			seen = GetRequestID(ctx)
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if seen == "" {
			t.Error("Expected request ID to be generated")
		}
	})

	t.Run("RequestIDFromMetadata", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "req-123"))

		var seen string
		_, _ = interceptor(ctx, "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
			seen = GetRequestID(ctx)
			return "ok", nil
		})
		if seen != "req-123" {
			t.Errorf("Expected req-123, got %q", seen)
		}
	})

	t.Run("PassesErrorsThrough", func(t *testing.T) {
		testErr := status.Error(codes.ResourceExhausted, "posting too fast")
		resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, testErr
		})
		if resp != nil {
			t.Errorf("Expected nil response, got %v", resp)
		}
		if status.Code(err) != codes.ResourceExhausted {
			t.Errorf("Expected ResourceExhausted, got %v", err)
		}
	})
}

func TestTracingUnaryInterceptor_LogLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	interceptor := TracingUnaryInterceptor(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: "/truthmeter.v1.TruthMeter/RecordVote"}

	_, _ = interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "secret not found")
	})
	_, _ = interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Internal, "storage")
	})

	if n := logs.FilterMessage("Request rejected").Len(); n != 1 {
		t.Errorf("Expected 1 rejected entry, got %d", n)
	}
	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Errorf("Expected 1 error entry, got %d", n)
	}
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	interceptor := RecoveryUnaryInterceptor(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: "/truthmeter.v1.TruthMeter/CreateSecret"}

	resp, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("nil map")
	})

	if resp != nil {
		t.Errorf("Expected nil response, got %v", resp)
	}
	if status.Code(err) != codes.Internal {
		t.Errorf("Expected Internal, got %v", err)
	}
	if logs.Len() != 1 {
		t.Errorf("Expected panic to be logged once, got %d", logs.Len())
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var seen string
	handler := LoggingMiddleware(zap.NewNop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("PropagatesHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "abc")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if seen != "abc" {
			t.Errorf("Expected abc, got %q", seen)
		}
		if w.Header().Get("X-Request-ID") != "abc" {
			t.Error("Expected request ID in response header")
		}
		if w.Code != http.StatusTeapot {
			t.Errorf("Expected status to pass through, got %d", w.Code)
		}
	})

	t.Run("GeneratesID", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if seen == "" || w.Header().Get("X-Request-ID") != seen {
			t.Errorf("Expected generated request ID, got %q", seen)
		}
	})
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx := context.WithValue(context.Background(), RequestIDKey, "rid-1")
	WithRequestID(ctx, logger).Info("hello")
	WithRequestID(context.Background(), logger).Info("plain")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["request_id"] != "rid-1" {
		t.Errorf("Expected request_id field, got %v", entries[0].ContextMap())
	}
	if _, ok := entries[1].ContextMap()["request_id"]; ok {
		t.Error("Expected no request_id field without ID in context")
	}
}
