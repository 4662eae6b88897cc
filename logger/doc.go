// Package logger provides structured logging for apikit clients using
// zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("requester")
//	log.Debug("request sent", logger.Fields(logger.FieldMethod, "GET"))
package logger
