package common

import (
	"github.com/google/uuid"
)

// NewRequestID generates a unique analysis request ID with the "req_" prefix
// Format: req_<uuid>
func NewRequestID() string {
	return "req_" + uuid.New().String()
}

// NewBatchID generates a unique batch run ID with the "batch_" prefix
func NewBatchID() string {
	return "batch_" + uuid.New().String()
}
