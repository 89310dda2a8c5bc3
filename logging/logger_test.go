package logging_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/finhub/logging"
)

func TestWithComponent_ReplacesComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	root := logging.NewFromCore(core, logging.ComponentApp)

	finance := root.WithComponent(logging.ComponentFinance)
	finance.Info("created", zap.String(logging.FieldRecordID, "t1"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "finance", fields[logging.FieldComponent])
	assert.Equal(t, "t1", fields[logging.FieldRecordID])
	assert.Equal(t, logging.ComponentFinance, finance.Component())
}

func TestMiddleware_LogsStatusAndInjectsLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	root := logging.NewFromCore(core, logging.ComponentApp)

	var fromCtx *logging.Logger
	handler := logging.Middleware(root)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logging.FromContext(r.Context(), nil)
		w.WriteHeader(http.StatusConflict)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/t1/approve", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, fromCtx)
	assert.Equal(t, logging.ComponentHTTP, fromCtx.Component())

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.EqualValues(t, http.StatusConflict, entries[0].ContextMap()[logging.FieldStatusCode])
	assert.Equal(t, "/api/transactions/t1/approve", entries[0].ContextMap()[logging.FieldPath])
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := logging.New(logging.Config{Level: "chatty"})
	assert.Error(t, err)
}
