// Package player is a tick-based reference Engine for embedx.
//
// A Player hosts scenes: named entities with method handlers, selected by
// the data-bundle identifier given at launch. Requests from the host are
// queued and processed at fixed tick boundaries:
//   - commands are batched per tick and ordered by sequence number (FIFO)
//   - handlers run on the tick goroutine, one at a time
//   - messages queued while paused are held until the player resumes
//   - unload and quit completions are reported from the tick goroutine
//
// # Example Usage
//
//	scene, _ := player.NewScene("demo").
//		Entity("Cube").On("Spin", spin).Done().
//		Build()
//	p := player.New(player.Config{TickRate: 16667 * time.Microsecond}, scene)
//	inst := embedx.NewInstance(embedx.WithEngine(p))
//	inst.SetDataBundleID("demo")
//	inst.RunEmbedded(ctx, os.Args, nil)
//
// # Event Ordering Guarantees
//
// Given the same sequence of Engine calls, a scene observes the same
// sequence of handler invocations regardless of goroutine scheduling.
// Commands queued during a tick by a handler are processed on the next
// tick.
package player
