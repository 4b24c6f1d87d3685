package queue

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange      = errors.New("index out of range")
	ErrNotFound        = errors.New("entry not found")
	ErrBatchValidation = errors.New("invalid batch")
)

// OutOfRangeError reports an index that is not valid for the queue at the
// moment the mutation was applied.
type OutOfRangeError struct {
	Index int
	Len   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range for queue of length %d", e.Index, e.Len)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// NotFoundError reports a referenced entry id that is not in the queue.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entry %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// BatchValidationError rejects a whole add batch because of one entry.
type BatchValidationError struct {
	Index  int
	Reason string
}

func (e *BatchValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid batch: %s", e.Reason)
	}
	return fmt.Sprintf("invalid batch entry %d: %s", e.Index, e.Reason)
}

func (e *BatchValidationError) Is(target error) bool { return target == ErrBatchValidation }
