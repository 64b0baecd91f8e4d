// Package client contains the sensor CLI's transport and local storage
// bootstrap.
//
// # Overview
//
//  1. Client, the contract the CLI services use to talk to the server's
//     netguard.v1.Sensor gRPC API: Login, Ping, Predict, Simulate.
//  2. GRPCClient, the concrete implementation. It injects the access token
//     through a unary interceptor and maps gRPC status codes to sentinel
//     errors.
//  3. InitDatabase / RunMigrations, which open the local SQLite cache and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// Callers match the sentinel errors in errors.go with errors.Is.
package client
