// Package middleware provides slot decorators for observing and hardening
// signal deliveries.
//
// A Middleware wraps a signal.Slot and returns a new slot. Connect the
// returned slot, and keep it if you need to disconnect it later:
//
//	slot := middleware.Wrap(cup,
//	    middleware.Recover[string](),
//	    middleware.Prometheus[string]("cup"),
//	    middleware.OpenTelemetry[string]("cup"),
//	)
//	pour.Connect(slot)
//
// This package includes:
//   - Prometheus metrics for delivery counts, failures and durations
//   - OpenTelemetry spans around each delivery
//   - slog logging of deliveries and failures
//   - Recover, which turns slot panics into errors
//   - Isolate, which keeps a failing slot from aborting its siblings
//
// # Prometheus Metrics
//
// The Prometheus middleware collects:
//   - signalslot_deliveries_total: deliveries by slot and status
//   - signalslot_delivery_duration_seconds: delivery duration histogram
//
// Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Failure Policy
//
// Signals stop a delivery pass at the first failing slot. Recover and
// Isolate are the opt-in tools for subscribers that must not break the
// pass: Recover converts a panic into an ordinary error, Isolate reports an
// error and then hides it from the signal.
package middleware
