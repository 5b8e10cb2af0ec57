/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyAllLayers      = "AllLayers"
	KeyApplyGrain     = "ApplyGrain"
	KeyFrameThreads   = "FrameThreads"
	KeyLogging        = "logging"
	KeyOperatingPoint = "OperatingPoint"
	KeyThreads        = "Threads"
)

// Config map parameter types.
const (
	typeUint = "uint"
	typeBool = "bool"
)

// Default variable values.
const (
	defaultVerbosity      = logging.Error
	defaultThreads        = 1
	defaultFrameThreads   = 1
	defaultOperatingPoint = 0

	maxOperatingPoint = 31
)

// Variables describes the variables that can be used for session control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyAllLayers,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.AllLayers = parseBool(KeyAllLayers, v, c) },
	},
	{
		Name:   KeyApplyGrain,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.ApplyGrain = parseBool(KeyApplyGrain, v, c) },
	},
	{
		Name:   KeyFrameThreads,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FrameThreads = parseUint(KeyFrameThreads, v, c) },
		Validate: func(c *Config) {
			c.FrameThreads = lessThanOrEqual(KeyFrameThreads, c.FrameThreads, 0, c, defaultFrameThreads)
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyOperatingPoint,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.OperatingPoint = parseUint(KeyOperatingPoint, v, c) },
		Validate: func(c *Config) {
			if c.OperatingPoint > maxOperatingPoint {
				c.LogInvalidField(KeyOperatingPoint, defaultOperatingPoint)
				c.OperatingPoint = defaultOperatingPoint
			}
		},
	},
	{
		Name:   KeyThreads,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Threads = parseUint(KeyThreads, v, c) },
		Validate: func(c *Config) {
			c.Threads = lessThanOrEqual(KeyThreads, c.Threads, 0, c, defaultThreads)
		},
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

func lessThanOrEqual(n string, v, cmp uint, c *Config, def uint) uint {
	if v <= cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}
