// Package observe instruments bootstrap stages with logs, traces and metrics.
//
// Every stage of a bootstrap run goes through a Runner, which opens a span
// named "bootstrap.<stage>", records the bootstrap.stage.* instruments and
// writes one structured log line. Fetched configuration values never pass
// through this package; callers log key names and counts only.
//
// Two Logger sinks are available: a JSON line logger (NewLogger) and a
// go.uber.org/zap adapter (NewZapLogger).
package observe
