/*
Package dsl provides a fluent builder for authoring routes in Go.

Routes built this way go straight into an in-memory repository, which makes
the builder the quickest path from a test or an example to a running engine.

	routes, err := dsl.New().
		Route("corridor", "Corridor").
		Waypoint("door").Say("Face the door").Heading(90).
		Waypoint("hall").Say("Walk the hall").Steps(12).
		Waypoint("lab").Say("Enter the lab").
		Done().
		Build()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := wayfinder.New("", wayfinder.WithRoutes(routes))
*/
package dsl
