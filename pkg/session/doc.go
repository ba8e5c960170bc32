/*
Package session runs many independent navigation sessions side by side.

A Manager owns one engine per session id, serializes commands per session
(optionally across replicas through a distributed lock) and checkpoints
session snapshots to a SessionStore whenever a session starts, enters a
waypoint, arrives or ends, so that a crashed or stopped session can be
resumed later.
*/
package session
