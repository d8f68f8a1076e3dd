package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func resetForTest(t *testing.T) {
	t.Helper()
	origBuild := buildLogger
	t.Cleanup(func() {
		buildLogger = origBuild
		log = zap.NewNop()
		once = sync.Once{}
	})
	log = zap.NewNop()
	once = sync.Once{}
}

func TestInitDevelopmentAndContextLogging(t *testing.T) {
	resetForTest(t)
	Init("development")
	assert.NotNil(t, L())

	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.NotNil(t, WithContext(ctx))

	Info(ctx, "info")
	Debug(ctx, "debug")
	Warn(ctx, "warn")
	Error(ctx, "error")
	LogRequest(ctx, "GET", "/health", 200, 10*time.Millisecond, "127.0.0.1")
}

func TestRequestIDMissing(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
	assert.Equal(t, "", RequestID(nil))
}

func TestInitProduction(t *testing.T) {
	resetForTest(t)
	Init("production")
	assert.NotNil(t, Named("rides"))
}

func TestInitPanicsWhenBuildFails(t *testing.T) {
	resetForTest(t)
	buildLogger = func(zap.Config) (*zap.Logger, error) {
		return nil, errors.New("build failed")
	}
	assert.Panics(t, func() { Init("production") })
}
