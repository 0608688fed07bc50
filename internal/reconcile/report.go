package reconcile

// Report summarizes one Update. Counters describe the diff that was applied;
// a second Update with the same config reports no changes.
type Report struct {
	Ref  string `json:"ref"`
	Hash string `json:"hash"`

	MachineCreated bool `json:"machine_created,omitempty"`

	StatesAdded   int `json:"states_added"`
	StatesRemoved int `json:"states_removed"`

	ActionsAdded   int `json:"actions_added"`
	ActionsUpdated int `json:"actions_updated"`
	ActionsRemoved int `json:"actions_removed"`
	ActionsSkipped int `json:"actions_skipped"`

	TransitionsSet    int `json:"transitions_set"`
	TransitionsPruned int `json:"transitions_pruned"`

	MachinesAttached int `json:"machines_attached"`
	MachinesDetached int `json:"machines_detached"`
}

// Changed reports whether the update mutated the live graph.
//
// ActionsUpdated counts reconfigure calls, which run on every pass, and
// ActionsSkipped counts rejected config; neither is a structural change.
func (r Report) Changed() bool {
	return r.MachineCreated ||
		r.StatesAdded > 0 || r.StatesRemoved > 0 ||
		r.ActionsAdded > 0 || r.ActionsRemoved > 0 ||
		r.TransitionsSet > 0 || r.TransitionsPruned > 0 ||
		r.MachinesAttached > 0 || r.MachinesDetached > 0
}
