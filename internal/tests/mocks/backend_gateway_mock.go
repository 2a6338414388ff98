package mocks

import (
	"context"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/backend"
)

type BackendGatewayMock struct {
	StartSessionFunc    func(ctx context.Context, sessionID, userID string) (*backend.SessionAck, error)
	ContinueSessionFunc func(ctx context.Context, sessionID, userID, repoURL string) error
	StartAnalysisFunc   func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	SendMessageFunc     func(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	FetchFileListFunc   func(ctx context.Context, repoURL string) ([]string, error)
}

func (m *BackendGatewayMock) StartSession(ctx context.Context, sessionID, userID string) (*backend.SessionAck, error) {
	if m.StartSessionFunc != nil {
		return m.StartSessionFunc(ctx, sessionID, userID)
	}
	return &backend.SessionAck{SessionID: sessionID}, nil
}

func (m *BackendGatewayMock) ContinueSession(ctx context.Context, sessionID, userID, repoURL string) error {
	if m.ContinueSessionFunc != nil {
		return m.ContinueSessionFunc(ctx, sessionID, userID, repoURL)
	}
	return nil
}

func (m *BackendGatewayMock) StartAnalysis(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	if m.StartAnalysisFunc != nil {
		return m.StartAnalysisFunc(ctx, req)
	}
	return &backend.ChatResponse{Response: "Cloning repository..."}, nil
}

func (m *BackendGatewayMock) SendMessage(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, req)
	}
	return &backend.ChatResponse{}, nil
}

func (m *BackendGatewayMock) FetchFileList(ctx context.Context, repoURL string) ([]string, error) {
	if m.FetchFileListFunc != nil {
		return m.FetchFileListFunc(ctx, repoURL)
	}
	return nil, nil
}
