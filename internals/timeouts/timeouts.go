package timeouts

import "time"

const (
	Probe         = 300 * time.Millisecond
	SecondShort   = 2 * time.Second
	SecondDefault = 10 * time.Second
	SecondLong    = 30 * time.Second
	PlannerCall   = 2 * time.Minute
)
