package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"
)

// delegationConf configures the privilege delegation workflow under the
// `delegation` key.
//
// YAML example:
//
//	delegation:
//	  grant_ttl: 1h
//	  scan_interval: 1m
type delegationConf struct {
	GrantTTL     duration.DurationOption `yaml:"grant_ttl"`
	ScanInterval duration.DurationOption `yaml:"scan_interval"`
}

func (c *delegationConf) validate() error {
	if c.GrantTTL.Duration() < 0 || c.ScanInterval.Duration() < 0 {
		return errors.New("error in delegation conf: durations must not be negative")
	}
	return nil
}

var defaultDelegationConf = delegationConf{
	GrantTTL:     duration.DurationOption(time.Hour),
	ScanInterval: duration.DurationOption(time.Minute),
}

// ticketsConf configures the staff request workflow under the `tickets` key.
type ticketsConf struct {
	RemindCadence duration.DurationOption `yaml:"remind_cadence"`
	ScanInterval  duration.DurationOption `yaml:"scan_interval"`
}

func (c *ticketsConf) validate() error {
	if c.RemindCadence.Duration() < 0 || c.ScanInterval.Duration() < 0 {
		return errors.New("error in tickets conf: durations must not be negative")
	}
	return nil
}

var defaultTicketsConf = ticketsConf{
	RemindCadence: duration.DurationOption(48 * time.Hour),
	ScanInterval:  duration.DurationOption(time.Hour),
}
