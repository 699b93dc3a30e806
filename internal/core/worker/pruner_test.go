package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/storage/memory"
)

func TestPruner_Interval(t *testing.T) {
	tests := []struct {
		retention time.Duration
		want      time.Duration
	}{
		{time.Minute, time.Minute},
		{30 * time.Minute, 3 * time.Minute},
		{72 * time.Hour, time.Hour},
	}
	for _, tt := range tests {
		p := NewPruner(nil, tt.retention, nil)
		if got := p.Interval(); got != tt.want {
			t.Errorf("Interval(%v) = %v, want %v", tt.retention, got, tt.want)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	repo := memory.NewHistoryRepo(0)
	ctx := context.Background()

	old := domain.Healthy(domain.ChainEVM, "https://a.example", 0)
	old.CheckedAt = time.Now().Add(-48 * time.Hour)
	_ = repo.SaveProbes(ctx, "s", []domain.HealthResult{old, domain.Healthy(domain.ChainEVM, "https://a.example", 0)})

	p := NewPruner(repo, 24*time.Hour, nil)
	if n := p.Prune(ctx); n != 1 {
		t.Fatalf("expected 1 pruned record, got %d", n)
	}
	left, _ := repo.RecentProbes(ctx, domain.ChainEVM, 0)
	if len(left) != 1 {
		t.Fatalf("expected 1 record left, got %d", len(left))
	}
}

func TestPruner_DisabledReturnsImmediately(t *testing.T) {
	p := NewPruner(memory.NewHistoryRepo(0), 0, nil)

	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return when retention is disabled")
	}
}
