// Package metrics exports Prometheus instrumentation for a device link.
//
// Metrics collected (namespace "icsneo" by default):
//   - icsneo_rx_bytes_total: bytes read from the transport
//   - icsneo_tx_bytes_total: bytes written to the transport
//   - icsneo_packets_total: packets framed by the packetizer
//   - icsneo_messages_total: decoded messages by kind
//   - icsneo_decode_failures_total: packets dropped by the decoder
//   - icsneo_events_total: reported events by type
//   - icsneo_sync_wait_seconds: request/response latency
//   - icsneo_sync_timeouts_total: request/response waits that timed out
//   - icsneo_polling_queue_depth: messages waiting in the polling queue
//
// A nil *Metrics is valid and records nothing, so instrumented code does not
// need to check whether metrics are enabled.
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(metrics.WithRegistry(reg))
//	com := communication.New(t, communication.WithMetrics(m))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics
