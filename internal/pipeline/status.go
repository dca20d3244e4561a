package pipeline

// Status is the workflow state of an upload.
type Status string

const (
	StatusPending     Status = "pending"
	StatusClassifying Status = "classifying"
	StatusExtracting  Status = "extracting"
	StatusEncoding    Status = "encoding"
	StatusSubmitting  Status = "submitting"
	StatusDone        Status = "done"
	StatusError       Status = "error"
)
