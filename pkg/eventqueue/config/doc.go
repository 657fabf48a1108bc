/*
Package config loads the configuration of an event queue hub.

# File Loading

	cfg, err := config.FromFile("eventqueue.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
	    log.Fatal(err)
	}

A complete YAML file:

	name: ui
	mode: background
	capacity: 10000
	raise_unhandled_events: true
	shutdown_timeout: 5s
	log:
	  level: debug
	  format: json
	archive:
	  driver: sqlite
	  path: ./snapshots.db
	wire:
	  format: text
	  verbose: true
	metrics: true
	tracing: true

Every key is optional; missing keys take the value from Default.

# Values

Values is the untyped layer underneath: typed accessors over a decoded
document that fall back to a default when a key is missing or mistyped.
Durations accept Go duration strings or a number of seconds.
*/
package config
