/*
Package ports defines the driven ports (interfaces) for the Wayfinder engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various route sources, session stores and sensor feeds.

# Key Interfaces

  - RouteRepository: read-only access to authored routes (e.g., from Loam, YAML or Memory).
  - RouteWriter: the authoring side, used by tools that edit routes.
  - SessionStore: persists session snapshots for inspection and resume.
  - DistributedLocker: distributed locking for concurrent session access across replicas.
  - SampleSink: where sensor adapters (MQTT, NMEA, WebSocket) push samples.
*/
package ports
