/*
DESCRIPTION
  config.go provides the configuration settings of an AV1 decoding session.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for av1dec.
package config

import (
	"github.com/ausocean/utils/logging"
)

// Config provides parameters used by a decoding session.
type Config struct {
	// Logger holds an implementation of the Logger interface as defined in
	// the ausocean/utils/logging package. This must be set for the session
	// to work correctly.
	Logger logging.Logger

	// LogLevel is the session logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	// Threads is the number of tile decoding threads. Only 1 is supported.
	Threads uint

	// FrameThreads is the number of frames decoded in parallel. Only 1 is
	// supported.
	FrameThreads uint

	// OperatingPoint selects the operating point of scalable streams, 0 to
	// 31. Values beyond the number of operating points in a stream select 0.
	OperatingPoint uint

	// AllLayers outputs every spatial layer rather than only the highest.
	AllLayers bool

	// ApplyGrain attaches film grain parameters to output frames.
	ApplyGrain bool
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
