// Package connectivity tracks whether the presentation backend is reachable.
//
// A Monitor probes the backend health endpoint on a fixed interval and keeps two
// independent observations:
//
//   - IsOnline: network presence reported by a PresenceSource
//   - IsHealthy: true while the last successful probe is younger than MaxOfflineTime
//
// When a probe fails and the backend has not answered for longer than MaxOfflineTime,
// the monitor emits an Event to its subscribers on every such tick until a probe succeeds.
//
// Example:
//
//	monitor, err := connectivity.New(connectivity.DefaultConfig("http://localhost:8000/api/v1/ppt"),
//	    connectivity.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	unsubscribe := monitor.Subscribe(func(ev connectivity.Event) {
//	    logger.Error(ev.Message, slog.Duration("offline_for", ev.Duration))
//	})
//	defer unsubscribe()
//
//	if err := monitor.Start(ctx); err != nil {
//	    return err
//	}
//	defer monitor.Stop()
package connectivity
