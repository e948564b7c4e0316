// Package embedx manages one embedded game-engine runtime living inside a
// host process: its launch, pause, unload and quit lifecycle, the
// notifications the runtime raises when an unload or quit completes, and
// fire-and-forget messages addressed to named entities inside the runtime.
//
// # Instance
//
// The process-wide instance is reached through GetInstance. Construction
// options are supplied with Configure before the first GetInstance call.
// Tests and hosts that want isolation use NewRegistry or NewInstance.
//
//	embedx.Configure(embedx.WithEngine(p))
//	inst := embedx.GetInstance()
//	inst.SetDataBundleID("com.example.game")
//	inst.RunEmbedded(ctx, os.Args, nil)
//	inst.AwaitState(ctx, embedx.StateRunning)
//	inst.SendMessage("GameManager", "SetColor", "red")
//
// # Lifecycle
//
//	Unconfigured -> Launching -> Running <-> Paused -> Unloading -> Unloaded
//	Running/Paused -> Quitting -> Quit (terminal)
//	Unloaded -> Launching (re-launch)
//
// Every request is asynchronous: the call returns once the request has been
// handed to the Engine, and completion is observed through the Listener
// registry or AwaitState. A request made from a state that forbids it is
// rejected with an error wrapping ErrInvalidTransition, logged, and has no
// side effects.
//
// # Notifications
//
// The Engine reports completions through the Host interface, usually from
// its own goroutine. Listeners are invoked synchronously on that goroutine,
// in registration order, with no locks held. The registry itself is safe
// for concurrent use, so a listener may unregister itself (or any other
// listener) from inside its callback.
package embedx
