// Package config loads client configuration from YAML files, .env files and
// the process environment using spf13/viper.
//
//	var cfg struct {
//	    Client requester.Config `mapstructure:"client"`
//	}
//	err := config.LoadConfig("billing", &cfg)
//
// Environment variables override file values. CLIENT_HOST sets client.host;
// every underscore split of a variable name is tried as a nested key.
package config
