package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"gruenerator-be/internal/bootstrap"
	"gruenerator-be/internal/config"
	"gruenerator-be/internal/controller"
	"gruenerator-be/internal/dto"
	"gruenerator-be/internal/handler"
	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/internal/pkg/metrics"
	"gruenerator-be/internal/pkg/serverutils"
	"gruenerator-be/internal/service"
	"gruenerator-be/internal/websocket"
	"gruenerator-be/pkg/intent"
	"gruenerator-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noHistoryService struct{}

func (noHistoryService) Initiate(context.Context, *dto.InitiateRequest) (*dto.InitiateResponse, error) {
	return &dto.InitiateResponse{}, nil
}

func (noHistoryService) Continue(context.Context, *dto.ContinueRequest) (*dto.ContinueResponse, error) {
	return &dto.ContinueResponse{}, nil
}

func (noHistoryService) GetSession(context.Context, string, string) (*store.Session, error) {
	return &store.Session{}, nil
}

func (noHistoryService) ListHistory(context.Context, *dto.HistoryQuery) (*dto.HistoryResponse, error) {
	return nil, service.ErrHistoryUnavailable
}

type idleChatService struct{}

func (idleChatService) Classify(context.Context, *dto.ClassifyRequest) (*intent.ClassificationResult, error) {
	return &intent.ClassificationResult{}, nil
}

func (idleChatService) SendMessage(context.Context, *dto.ChatRequest) (*dto.ChatResponse, error) {
	return &dto.ChatResponse{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logger.NewNopLogger()
	hub := websocket.NewHub(nil, log)
	c := &bootstrap.Container{
		InteractiveController: controller.NewInteractiveController(noHistoryService{}),
		ChatController:        controller.NewChatController(idleChatService{}),
		ProgressHandler:       handler.NewProgressHandler(hub, log),
		WebSocketHub:          hub,
		Metrics:               metrics.New(),
		Logger:                log,
	}
	cfg := &config.Config{App: config.AppConfig{Port: "0", CorsAllowedOrigins: "*"}}
	return New(cfg, c)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"health", "/health", 200},
		{"history without database", "/api/interactive/v1/history?user_id=u1", 503},
		{"progress without user", "/ws/progress", 400},
		{"progress without upgrade", "/ws/progress?user_id=u1", 426},
		{"unknown route", "/api/nope", 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := srv.GetApp().Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}

	resp, err := srv.GetApp().Test(httptest.NewRequest("GET", "/api/interactive/v1/history?user_id=u1", nil))
	require.NoError(t, err)
	var body serverutils.BaseResponse[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, 503, body.Code)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.GetApp().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)

	resp, err := srv.GetApp().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `gruenerator_http_requests_total{code="200",method="GET"`)
}
