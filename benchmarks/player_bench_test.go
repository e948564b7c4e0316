package benchmarks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/comalice/embedx"
	"github.com/comalice/embedx/player"
)

// BenchmarkPlayerThroughput measures end-to-end message delivery through a
// fast-ticking player.
func BenchmarkPlayerThroughput(b *testing.B) {
	var handled atomic.Int64
	done := make(chan struct{})
	target := int64(b.N)
	scene := player.NewScene("").
		Entity("Cube").
		On("Spin", func(*player.Frame, string) {
			if handled.Add(1) == target {
				close(done)
			}
		}).
		Done().
		MustBuild()

	p := player.New(player.Config{TickRate: 100 * time.Microsecond, MaxMessagesPerTick: 1 << 20}, scene)
	inst := embedx.NewInstance(embedx.WithEngine(p))
	if err := inst.RunEmbedded(context.Background(), nil, nil); err != nil {
		b.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := inst.AwaitState(ctx, embedx.StateRunning); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := inst.SendMessage("Cube", "Spin", ""); err != nil {
			b.Fatal(err)
		}
	}
	select {
	case <-done:
	case <-ctx.Done():
		b.Fatalf("handled %d of %d", handled.Load(), b.N)
	}
	b.StopTimer()

	inst.QuitApplication(0)
	p.Wait(ctx)
	b.ReportMetric(float64(p.LastReport().Frames), "frames")
}
