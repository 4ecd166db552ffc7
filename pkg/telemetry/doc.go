// Package telemetry provides the observability plumbing for rulekit.
//
// It combines structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus) behind one Telemetry value:
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("rules")
//	logger.WithRule("welcome").Info("Rule executed")
//
// Packages that take a plain zerolog.Logger get one from Logger.Zerolog.
//
// # Distributed Tracing
//
// Spans wrap rule executions and persistence commits:
//
//	ic := telemetry.StartOperation(ctx, "records.load")
//	defer ic.End(err)
//
// Supported exporters: "otlp" (gRPC), "stdout" and "none".
//
// # Metrics
//
// Every Metrics method is safe on a nil receiver and on a disabled instance.
// Key metrics exposed:
//
//   - rulekit_persist_operations_total{operation,status}
//   - rulekit_persist_rollbacks_total{operation}
//   - rulekit_persist_resources{operation}
//   - rulekit_input_parse_fallbacks_total
//   - rulekit_rule_executions_total{rule,status}
//   - rulekit_action_errors_total{action}
//   - rulekit_entities_written_total{type,operation}
package telemetry
