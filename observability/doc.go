// Package observability wires OpenTelemetry tracing and metrics for API clients.
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultConfig("billing-client"))
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultConfig("billing-client"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("billing-client"))
//	metrics.RecordCallEnd(ctx, "billing", "GET", 200, elapsed)
package observability
