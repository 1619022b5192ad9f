package models

import "time"

// Classification represents what the safety manager decided a file is
type Classification string

const (
	ClassPlain    Classification = "plain"
	ClassDatabase Classification = "database"
	ClassSidecar  Classification = "database_sidecar"
)

// FileEntry is one filesystem object under consideration. Entries are
// produced fresh on every run by scanning source and target and are never
// persisted.
type FileEntry struct {
	RelPath string
	AbsPath string
	Size    int64
	ModTime time.Time
	Hash    string // filled lazily, only when indexing needs it
	Class   Classification
}

// ActionType represents one kind of planned operation
type ActionType string

const (
	ActionCopy     ActionType = "copy"
	ActionDelete   ActionType = "delete"
	ActionSkip     ActionType = "skip"
	ActionConflict ActionType = "conflict"
)

// SkipReason explains why an entry was planned as a skip
type SkipReason string

const (
	SkipTargetOnly       SkipReason = "target_only"       // update/one_way never delete
	SkipTargetNewer      SkipReason = "target_newer"      // one_way never overwrites newer target
	SkipIndexOnly        SkipReason = "index_only"        // index_only mode copies nothing
	SkipCheckpointFailed SkipReason = "checkpoint_failed" // safety manager aborted the copy
	SkipError            SkipReason = "error"             // per-entry read/copy failure
)

// Winner represents which side a conflict resolution picked
type Winner string

const (
	WinnerSource Winner = "source"
	WinnerTarget Winner = "target"
)

// SyncAction is one planned operation. Source and Dest are absolute paths;
// RelPath identifies the entry within the connection. For conflicts the
// copy direction points toward the losing side.
type SyncAction struct {
	Type    ActionType
	RelPath string
	Source  string
	Dest    string
	Size    int64
	Reason  SkipReason // set for skips
	Winner  Winner     // set for conflicts
	Err     string     // set for skips with reason "error"
}

// SyncPlan is the ordered action sequence for one run. Copies always
// precede deletes so no entry is ever absent from both sides.
type SyncPlan struct {
	ConnectionID string
	Actions      []SyncAction
	CreatedAt    time.Time
}

// HasWork reports whether the plan contains any copy or delete.
func (p *SyncPlan) HasWork() bool {
	for _, a := range p.Actions {
		if a.Type == ActionCopy || a.Type == ActionDelete || a.Type == ActionConflict {
			return true
		}
	}
	return false
}

// Counts returns the number of copy, delete, skip and conflict actions.
func (p *SyncPlan) Counts() (copies, deletes, skips, conflicts int) {
	for _, a := range p.Actions {
		switch a.Type {
		case ActionCopy:
			copies++
		case ActionDelete:
			deletes++
		case ActionSkip:
			skips++
		case ActionConflict:
			conflicts++
		}
	}
	return
}

// RunStatus represents the overall outcome of one engine execution
type RunStatus string

const (
	StatusSuccess         RunStatus = "success"
	StatusPartial         RunStatus = "partial"
	StatusFailed          RunStatus = "failed"
	StatusAbortedBySafety RunStatus = "aborted_by_safety"
)

// RunError is one recorded per-entry or run-level failure.
type RunError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// RunResult is the outcome of one engine execution, consumed by the
// scheduler and surfaced to the user.
type RunResult struct {
	ConnectionID string     `json:"connection_id"`
	Started      time.Time  `json:"started"`
	Finished     time.Time  `json:"finished"`
	Copied       int        `json:"copied"`
	Deleted      int        `json:"deleted"`
	Skipped      int        `json:"skipped"`
	Conflicted   int        `json:"conflicted"`
	Errors       []RunError `json:"errors,omitempty"`
	Status       RunStatus  `json:"status"`
}

// AddError records a failure against the result.
func (r *RunResult) AddError(path string, err error) {
	r.Errors = append(r.Errors, RunError{Path: path, Message: err.Error()})
}

// SchedState represents where a connection sits in the scheduler lifecycle
type SchedState string

const (
	SchedIdle     SchedState = "idle"
	SchedDue      SchedState = "due"
	SchedRunning  SchedState = "running"
	SchedCooldown SchedState = "cooldown"
)

// ScheduleState is the scheduler-owned timing state of one connection.
// Only the scheduler mutates it.
type ScheduleState struct {
	ConnectionID string     `json:"connection_id"`
	State        SchedState `json:"state"`
	LastRun      time.Time  `json:"last_run,omitempty"`
	NextDue      time.Time  `json:"next_due,omitempty"`
	LastResult   *RunResult `json:"last_result,omitempty"`
}

// IndexRecord is one (path, hash, size, mtime) tuple the engine forwards to
// the index sink for every entry it touches when indexing is enabled.
type IndexRecord struct {
	ConnectionID string
	RelPath      string
	AbsPath      string
	Hash         string
	Size         int64
	ModTime      time.Time
	Side         Winner // which side the content was observed on
}
