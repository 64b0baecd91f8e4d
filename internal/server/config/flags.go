package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/netguard/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-w string   HTTP bind address (e.g., ":8080")
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session lifetime, minutes
//	-k int      access token lifetime, minutes
//	-m string   model bundle path or s3://bucket/key
//	-u string   S3 root user
//	-p string   S3 root password
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-x string   password hash algorithm (argon2id, bcrypt)
//	-r bool     allow public registration to choose a role
//	-l string   log level
//	-f string   log format (json, text)
//	-o string   comma-separated CORS origins
//
// Only the flags above are passed to the FlagSet; everything else in os.Args
// is filtered out by flagx.FilterArgs.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-w", "-a", "-d", "-s", "-t", "-k", "-m", "-u", "-p", "-g", "-e", "-x", "-r", "-l", "-f", "-o",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "address and port to serve the web API")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to serve the sensor API")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session lifetime (in minutes)")
	accessTokenTTL := fs.Int("k", int(config.AccessTokenTTL.Minutes()), "access token lifetime (in minutes)")

	fs.StringVar(&config.ModelPath, "m", config.ModelPath, "model bundle path or s3://bucket/key")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.PasswordHashAlgorithm, "x", config.PasswordHashAlgorithm, "password hash algorithm")
	fs.BoolVar(&config.AllowRegistrationRole, "r", config.AllowRegistrationRole, "allow registration to choose a role")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	origins := fs.String("o", strings.Join(config.CORSOrigins, ","), "comma-separated CORS origins")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
	config.AccessTokenTTL = time.Duration(*accessTokenTTL) * time.Minute
	config.CORSOrigins = splitList(*origins)

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
