package driver

import "time"

type DriverOpt func(*Driver)

// WithVirtualClock makes the driver run on a manual clock starting at start. Posted
// functions run inline and scheduled tasks only fire through Advance.
func WithVirtualClock(start time.Time) DriverOpt {
	return func(d *Driver) {
		d.virtual = true
		d.now = start
	}
}
