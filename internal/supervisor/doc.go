// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

/*
Package supervisor runs the engagefeed server's long-lived services under a
suture v4 supervisor tree.

# Overview

Services are grouped into three layers so a failing batch job cannot take
the API down with it:

	RootSupervisor ("engagefeed")
	├── EventsSupervisor ("events-layer")
	│   └── EventRouterService (feedback persistence consumer)
	├── JobsSupervisor ("jobs-layer")
	│   ├── PeriodicJobService "learning-scheduler" (if learning.enabled)
	│   └── PeriodicJobService "curator-scheduler" (if curator.enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A service that returns an error is restarted by its parent with suture's
backoff policy. Supervisor events are logged through sutureslog, which
writes into the zerolog-backed slog handler from internal/logging.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{})
	tree.AddEventsService(services.NewEventRouterService(buildRouter, logger))
	tree.AddJobService(services.NewPeriodicJobService("learning-scheduler", job, cfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    ...
	}
*/
package supervisor
