package observe

// Bootstrap stage names.
const (
	StageGuards        = "guards"
	StageReachability  = "reachability"
	StageCacheFallback = "cache_fallback"
	StageAuth          = "auth"
	StageFetch         = "fetch"
	StageMerge         = "merge"
	StageValidate      = "validate"
	StageCommit        = "commit"
)

// StageMeta identifies one stage of one bootstrap run.
type StageMeta struct {
	Stage       string // Stage name (required)
	AppName     string // Application being bootstrapped (optional)
	Environment string // Active deployment environment (optional)
}

// SpanName returns the deterministic span name for this stage.
// Format: bootstrap.<stage>
func (m StageMeta) SpanName() string {
	return "bootstrap." + m.Stage
}
