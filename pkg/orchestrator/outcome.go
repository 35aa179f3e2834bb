package orchestrator

import domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"

type outcomeKind int

const (
	outcomeOk outcomeKind = iota
	outcomeRetry
	outcomeFail
)

// Outcome is the terminal classification of one handler execution.
// Ok completes the task; Retry leaves the delivery unacked so the
// broker redelivers; Fail acks the delivery and leaves the task
// incomplete, to surface via the age cutoff.
type Outcome struct {
	kind outcomeKind
	err  error
}

func Ok() Outcome {
	return Outcome{kind: outcomeOk}
}

func Retry(err error) Outcome {
	return Outcome{kind: outcomeRetry, err: err}
}

func Fail(err error) Outcome {
	return Outcome{kind: outcomeFail, err: err}
}

// FromError classifies err by the domain taxonomy: transient cloud
// and identity failures retry, everything else is permanent.
func FromError(err error) Outcome {
	if err == nil {
		return Ok()
	}
	if domerr.Retryable(err) {
		return Retry(err)
	}
	return Fail(err)
}

func (o Outcome) Completed() bool {
	return o.kind == outcomeOk
}

func (o Outcome) ShouldRetry() bool {
	return o.kind == outcomeRetry
}

func (o Outcome) Err() error {
	return o.err
}
