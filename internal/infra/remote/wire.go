// Package remote delegates executions to an executor service over HTTP and
// serves any local executor under the same contract.
package remote

import (
	"fmt"

	"snippetbot/internal/domain/execution"
)

const executePathPrefix = "/v1/execute/"

type executeRequest struct {
	Code      string `json:"code"`
	Stdin     string `json:"stdin"`
	TimeoutMS int64  `json:"timeout_ms"`
}

// executeResponse is a tagged outcome: exactly one of OK and Error is set.
type executeResponse struct {
	OK    *string    `json:"ok,omitempty"`
	Error *wireError `json:"error,omitempty"`
}

type wireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

type languagesResponse struct {
	Languages []string `json:"languages"`
}

func encodeOutcome(o execution.Outcome) executeResponse {
	if o.Kind == execution.KindSuccess {
		output := o.Output
		return executeResponse{OK: &output}
	}
	kind := o.Kind
	if !o.Valid() {
		kind = execution.KindOther
	}
	return executeResponse{Error: &wireError{Kind: string(kind), Message: o.Message}}
}

func (r executeResponse) outcome() (execution.Outcome, error) {
	switch {
	case r.OK != nil && r.Error != nil:
		return execution.Outcome{}, fmt.Errorf("response carries both ok and error")
	case r.OK != nil:
		return execution.Success(*r.OK), nil
	case r.Error != nil:
		return r.Error.outcome()
	default:
		return execution.Outcome{}, fmt.Errorf("response carries neither ok nor error")
	}
}

func (e wireError) outcome() (execution.Outcome, error) {
	switch execution.Kind(e.Kind) {
	case execution.KindCompile:
		return execution.CompileFailure(e.Message), nil
	case execution.KindRuntime:
		return execution.RuntimeFailure(e.Message), nil
	case execution.KindTimeout:
		return execution.TimeoutFailure(), nil
	case execution.KindOther:
		return execution.Outcome{Kind: execution.KindOther, Message: e.Message}, nil
	default:
		return execution.Outcome{}, fmt.Errorf("unknown error kind %q", e.Kind)
	}
}
