// Package logging provides structured logging for castscan.
//
// This package wraps a global zap logger. Logging is silent by default so that
// CLI output stays clean; set CASTSCAN_LOG_LEVEL (or pass --log-level) to enable it.
//
// # Log Levels
//
//   - Debug: raw announcements, filtered announcements, dropped notifications
//   - Info: session transitions, accepted receivers, feed clients
//   - Warn: transport stop failures, websocket write errors
//   - Error: startup failures
//
// # Structured Logging
//
//	logging.Info("Receiver event",
//	    zap.String("name", "Living Room"),
//	    zap.String("address", "https://10.0.0.5"),
//	)
//
// Components that take an explicit *zap.Logger (the discovery Locator, the feed
// Hub) default to GetLogger() so a single Initialize call configures everything.
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr in console format so stdout can carry JSON or YAML
// results for scripting.
package logging
