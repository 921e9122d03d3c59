package domain

import "encoding/json"

// Submission is a request to start a long-running job.
// Payload is job-defined and handed to the worker untouched.
type Submission struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubmitResponse is returned after a job was accepted for execution.
// Callers pass ProgressKey to the polling endpoint until a terminal state.
type SubmitResponse struct {
	ProgressKey ProgressKey `json:"progress_key"`
}

// JobMessage is the wire form of a submission travelling through the broker.
type JobMessage struct {
	ProgressKey ProgressKey     `json:"progress_key"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Delivery wraps a JobMessage with broker acknowledgement callbacks.
// The worker pool calls Ack or Nack after execution completes.
type Delivery struct {
	Message *JobMessage
	Ack     func() error
	Nack    func(requeue bool) error
}
