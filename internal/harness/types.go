package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int               `json:"seq"`
	Op     string            `json:"op"`
	Time   float64           `json:"time"`
	Layer  string            `json:"layer,omitempty"`
	Ref    string            `json:"ref,omitempty"`
	Event  string            `json:"event,omitempty"`
	Fired  *bool             `json:"fired,omitempty"`
	Active map[string]string `json:"active,omitempty"`
	Syncs  []SyncSummary     `json:"syncs,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// SyncSummary is the part of a recorded reconcile report kept in traces.
type SyncSummary struct {
	Ref            string `json:"ref"`
	Run            string `json:"run"`
	Changed        bool   `json:"changed"`
	StatesAdded    int    `json:"states_added"`
	ActionsAdded   int    `json:"actions_added"`
	ActionsSkipped int    `json:"actions_skipped"`
	Error          string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, setup binds first.
	Trace []TraceEvent `json:"trace"`

	// Failures contains assertion failure messages.
	Failures []string `json:"failures,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Failures: []string{},
	}
}

// AddFailure records a failed assertion and marks the result as failed.
func (r *Result) AddFailure(msg string) {
	r.Failures = append(r.Failures, msg)
	r.Pass = false
}

// canonical converts the event to the generic tree config.MarshalCanonical
// accepts. Empty optional fields are omitted.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"seq":  e.Seq,
		"op":   e.Op,
		"time": e.Time,
	}
	if e.Layer != "" {
		m["layer"] = e.Layer
	}
	if e.Ref != "" {
		m["ref"] = e.Ref
	}
	if e.Event != "" {
		m["event"] = e.Event
	}
	if e.Fired != nil {
		m["fired"] = *e.Fired
	}
	if e.Active != nil {
		active := make(map[string]any, len(e.Active))
		for k, v := range e.Active {
			active[k] = v
		}
		m["active"] = active
	}
	if e.Syncs != nil {
		syncs := make([]any, len(e.Syncs))
		for i, s := range e.Syncs {
			sm := map[string]any{
				"ref":             s.Ref,
				"run":             s.Run,
				"changed":         s.Changed,
				"states_added":    s.StatesAdded,
				"actions_added":   s.ActionsAdded,
				"actions_skipped": s.ActionsSkipped,
			}
			if s.Error != "" {
				sm["error"] = s.Error
			}
			syncs[i] = sm
		}
		m["syncs"] = syncs
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	return m
}
