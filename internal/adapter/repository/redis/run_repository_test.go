package redis

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/logvault/internal/domain"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		wantAddr string
		wantErr  bool
	}{
		{name: "Host and port", addr: "localhost:6379", wantAddr: "localhost:6379"},
		{name: "URL", addr: "redis://cache:6380/2", wantAddr: "cache:6380"},
		{name: "Wrong scheme", addr: "http://localhost:6379", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer client.Close()
			if got := client.Options().Addr; got != tt.wantAddr {
				t.Errorf("Addr = %v, want %v", got, tt.wantAddr)
			}
		})
	}
}

// Set LOGVAULT_TEST_REDIS_ADDR to run against a live server.
func TestRunRepository_RecordAndRecent(t *testing.T) {
	addr := os.Getenv("LOGVAULT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LOGVAULT_TEST_REDIS_ADDR not set")
	}
	client, err := NewClient(addr)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	stream := "logvault_test_" + uuid.NewString()
	repo := NewRunRepository(client, slog.New(slog.NewTextHandler(io.Discard, nil)), stream)
	defer repo.Close()
	defer client.Del(context.Background(), stream)

	first := domain.RunReport{RunID: uuid.NewString(), Outcome: domain.OutcomeNoOp, StartedAt: time.Now().UTC()}
	second := domain.RunReport{RunID: uuid.NewString(), Outcome: domain.OutcomeDone, ArtifactPath: "/backups/a.tar.gz.enc", FileCount: 3}
	for _, r := range []domain.RunReport{first, second} {
		if err := repo.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}
	}

	got, err := repo.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(RecentRuns()) = %d, want 2", len(got))
	}
	if got[0].RunID != second.RunID || got[0].FileCount != 3 || got[0].Outcome != domain.OutcomeDone {
		t.Errorf("newest = %+v, want %+v", got[0], second)
	}
	if got[1].RunID != first.RunID {
		t.Errorf("oldest run = %v, want %v", got[1].RunID, first.RunID)
	}
}
