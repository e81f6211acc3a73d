package domain

import "fmt"

// Zone is one independently operated demozone: its own event stream,
// its own aggregate store. Built once at startup from directory data.
type Zone struct {
	ID   string
	Name string
	Port int
}

func (z Zone) String() string {
	return fmt.Sprintf("zone: %v, name: %v, port: %v", z.ID, z.Name, z.Port)
}

// RaceStatus is the lifecycle signal carried by race messages.
type RaceStatus string

const (
	StatusRacing  RaceStatus = "RACING"
	StatusStopped RaceStatus = "STOPPED"
)
