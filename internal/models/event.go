package models

// ChangeOp identifies the kind of document change a watcher observed.
type ChangeOp string

const (
	// ChangeCreate means a new document was added to the index.
	ChangeCreate ChangeOp = "create"
	// ChangeModify means a tracked document's file was modified.
	ChangeModify ChangeOp = "modify"
	// ChangeRemove means a tracked document was deleted from disk.
	ChangeRemove ChangeOp = "remove"
)

// ChangeEvent is a typed "documents changed" notification published whenever
// the index mutates in response to a filesystem event.
type ChangeEvent struct {
	Op   ChangeOp `json:"op"`
	Path string   `json:"path"`
}
