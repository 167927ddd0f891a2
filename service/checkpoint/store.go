package checkpoint

import (
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/dao"
)

// Store persists checkpoints of suspended runs keyed by checkpoint id.
//
// Implementations must be safe for concurrent use and linearizable per key:
// Create inserts only when the id is absent (dao.ErrAlreadyExists
// otherwise) and Delete reports an absent id with dao.ErrNotFound, so that
// of several concurrent deleters exactly one succeeds.
type Store interface {
	dao.Service[string, model.Checkpoint]
	dao.Creator[model.Checkpoint]
}

// List parameter names understood by every backend.
const (
	ParamRunID = "RunID"
	ParamTool  = "Tool"
)

// ByRunID filters List by run id.
func ByRunID(runIDs ...string) *dao.Parameter {
	return dao.NewParameter(ParamRunID, runIDs...)
}

// ByTool filters List by the pending call's tool name.
func ByTool(toolNames ...string) *dao.Parameter {
	return dao.NewParameter(ParamTool, toolNames...)
}

// Fields exposes the filterable fields of a checkpoint.
func Fields(c *model.Checkpoint) map[string]string {
	return map[string]string{
		ParamRunID: c.RunID,
		ParamTool:  c.ToolName(),
	}
}

// Key returns the checkpoint id.
func Key(c *model.Checkpoint) string { return c.ID }
