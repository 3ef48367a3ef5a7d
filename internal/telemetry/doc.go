// Package telemetry installs OpenTelemetry trace and metric providers for
// litweaver.
//
// The embeddings and vectorstore packages create their tracers and meters from
// the otel globals, so they stay no-op until New installs real providers.
// Export goes over OTLP (gRPC or HTTP/protobuf) to a collector:
//
//	tel, err := telemetry.New(ctx, cfg.Telemetry, version, logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Configuration:
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc          # or http/protobuf
//	  sample_rate: 1.0
//	  export_interval: 15s
//
// Telemetry failures never fail a command. If an exporter cannot be created the
// instance is marked degraded and the corresponding provider stays no-op.
package telemetry
