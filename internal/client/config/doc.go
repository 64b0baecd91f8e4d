// Package config loads runtime configuration for the NetGuard sensor CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected via -c / -config (or NETGUARD_CONFIG).
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the server's gRPC endpoint
//	-b string   path of the local SQLite session cache
//	-i int      online status check interval (seconds)
//	-t int      per-request timeout (seconds)
//
// # File schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "netguard_sensor.db",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s"
//	}
package config
