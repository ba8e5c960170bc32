/*
Package domain contains the core models of the Wayfinder navigation engine.

It defines the authored entities (Waypoint, Route), the single mutable runtime
entity (Session) and the read-only views the engine publishes to renderers.
This package is kept pure and free of I/O, following Hexagonal Architecture
principles: adapters and the runtime depend on it, never the other way round.

# Key Entities

  - Waypoint: an authored step with an instruction and optional heading/step targets.
  - Route: an ordered list of waypoints with a contiguous 0-based order.
  - Session: the snapshot of a navigation run (current index, mode, step count, epoch).
  - Orientation: the three-state combination of target and current heading.
  - Alignment, Movement, StepStatus: the query views read by renderers.
*/
package domain
