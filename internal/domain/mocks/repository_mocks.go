package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/V4T54L/logvault/internal/domain"
)

// MockErrorSink is an in-memory domain.ErrorSink for testing.
type MockErrorSink struct {
	mu      sync.Mutex
	Records []string
}

func (m *MockErrorSink) Record(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, message)
}

// Matching returns the records containing substr.
func (m *MockErrorSink) Matching(substr string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.Records {
		if strings.Contains(r, substr) {
			out = append(out, r)
		}
	}
	return out
}

// MockEncoder is a mock implementation of domain.Encoder. With Err unset it
// delegates to Next when present.
type MockEncoder struct {
	mu      sync.Mutex
	Next    domain.Encoder
	Err     error
	Encoded []string
}

func (m *MockEncoder) Name() string {
	if m.Next != nil {
		return m.Next.Name()
	}
	return "mock"
}

func (m *MockEncoder) Encode(archivePath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Encoded = append(m.Encoded, archivePath)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Next != nil {
		return m.Next.Encode(archivePath)
	}
	return archivePath + ".mock", nil
}

// MockArtifactCatalog is a mock implementation of domain.ArtifactCatalog.
type MockArtifactCatalog struct {
	mu        sync.Mutex
	Artifacts []domain.Artifact
	SaveErr   error
}

func (m *MockArtifactCatalog) SaveArtifact(ctx context.Context, artifact domain.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Artifacts = append(m.Artifacts, artifact)
	return nil
}

// MockRunRecorder is a mock implementation of domain.RunRecorder.
type MockRunRecorder struct {
	mu        sync.Mutex
	Reports   []domain.RunReport
	RecordErr error
}

func (m *MockRunRecorder) RecordRun(ctx context.Context, report domain.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.Reports = append(m.Reports, report)
	return nil
}
