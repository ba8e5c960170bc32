/*
Package wayfinder is a waypoint progression engine for guided navigation
without absolute positioning.

A route is an ordered list of authored waypoints. Each waypoint may carry a
target compass heading, a required step count, or neither. The engine keeps
one navigation session per Engine, consumes compass, accelerometer and step
events, and decides when the user has reached the current waypoint so that
guidance can move on to the next one. Feedback cues (pulse pattern,
interval and intensity) are derived from the heading error.

# Concept

Every mutation happens on a single event loop. Sensor feeds, evaluation
ticks, the settle timer and commands (Start, Advance, Stop, ...) are queued
and handled in order, so callers never race the state machine. Readers get
a consistent View that is republished after every event.

Each waypoint transition increments an epoch; arrival timers and pending
commits from an older epoch are discarded. Stop invalidates every sensor
subscription before it returns, so late callbacks cannot touch a stopped
session.

# Usage

	routes, _ := dsl.New().
		Route("corridor", "Corridor").
		Waypoint("door").Say("Face the door").Heading(90).
		Waypoint("hall").Say("Walk the hall").Steps(12).
		Done().
		Build()

	eng, err := wayfinder.New("", wayfinder.WithRoutes(routes))
	if err != nil {
		log.Fatal(err)
	}
	go eng.Run(ctx)

	if _, err := eng.Start(ctx, "", "corridor", domain.ModeCombined); err != nil {
		log.Fatal(err)
	}

	compass := eng.Subscribe()
	compass.PushHeading(87, time.Time{})

	fmt.Println(eng.CurrentAlignment().Aligned)

Routes can also be read from a directory of markdown files (the default
when a path is given) or YAML files; see pkg/adapters.
*/
package wayfinder
