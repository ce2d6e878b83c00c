// state.go - Task state carried alongside the holographic fingerprint.

package trace

import "fmt"

// Meta is the holographic metadata attached to a task: the fingerprint, its
// depth, the current segment and a human-readable path log. The path log is
// audit convenience only; verification never trusts it without replaying it
// against the fingerprint.
type Meta struct {
	TraceT    string   `json:"trace_t"`
	Depth     uint64   `json:"depth"`
	SegmentID uint64   `json:"segment_id"`
	PathLog   []string `json:"path_log"`
}

// TaskState is the global container an orchestrator threads through agents.
type TaskState struct {
	TaskID  string `json:"task_id"`
	Payload any    `json:"payload"`
	Meta    Meta   `json:"meta"`
}

// NewTaskState creates a task at the accumulator's starting fingerprint.
func NewTaskState(taskID string, payload any) *TaskState {
	return &TaskState{
		TaskID:  taskID,
		Payload: payload,
		Meta:    Meta{TraceT: "2"},
	}
}

// Record appends an agent to the path log and adopts the new fingerprint.
func (s *TaskState) Record(agent, newT string, depth uint64) {
	s.Meta.TraceT = newT
	s.Meta.Depth = depth
	s.Meta.PathLog = append(s.Meta.PathLog, agent)
}

// Summary renders a short human-readable digest of the state.
func (s *TaskState) Summary() string {
	t := s.Meta.TraceT
	if len(t) > 10 {
		t = t[:10] + "..."
	}
	return fmt.Sprintf("[%s] depth=%d t=%s", s.TaskID, s.Meta.Depth, t)
}
