package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"snippetbot/internal/domain/execution"
)

type reportEnvelope struct {
	ID         string    `json:"id"`
	ChannelID  int64     `json:"channel_id"`
	MessageID  int64     `json:"message_id"`
	Trigger    string    `json:"trigger"`
	Language   string    `json:"language"`
	Code       string    `json:"code,omitempty"`
	Stdin      string    `json:"stdin,omitempty"`
	Kind       string    `json:"kind"`
	Output     string    `json:"output,omitempty"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Backend    string    `json:"backend,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func reportKey(report execution.RunReport) []byte {
	return []byte(strconv.FormatInt(report.ChannelID, 10) + ":" + strconv.FormatInt(report.MessageID, 10))
}

func encodeRunReport(report execution.RunReport, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(makeReportEnvelope(report, now))
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return payload, nil
}

func makeReportEnvelope(report execution.RunReport, now time.Time) reportEnvelope {
	return reportEnvelope{
		ID:         report.ID,
		ChannelID:  report.ChannelID,
		MessageID:  report.MessageID,
		Trigger:    string(report.Trigger),
		Language:   string(report.Request.Language),
		Code:       report.Request.Source,
		Stdin:      report.Request.Stdin,
		Kind:       string(report.Outcome.Kind),
		Output:     report.Outcome.Output,
		Message:    report.Outcome.Message,
		DurationMs: report.Duration.Milliseconds(),
		Backend:    report.Backend,
		Timestamp:  now.UTC(),
	}
}

func decodeReportMessage(msg kafkago.Message) (execution.RunReport, time.Time, error) {
	var envelope reportEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return execution.RunReport{}, time.Time{}, fmt.Errorf("decode message: %w", err)
	}
	report, err := envelope.toRunReport(msg)
	if err != nil {
		return execution.RunReport{}, time.Time{}, err
	}
	return report, envelope.Timestamp, nil
}

func (e reportEnvelope) toRunReport(msg kafkago.Message) (execution.RunReport, error) {
	if e.Language == "" {
		return execution.RunReport{}, fmt.Errorf("report message missing language")
	}
	outcome := execution.Outcome{
		Kind:    execution.Kind(e.Kind),
		Output:  e.Output,
		Message: e.Message,
	}
	if !outcome.Valid() {
		return execution.RunReport{}, fmt.Errorf("report message has unknown kind %q", e.Kind)
	}

	id := e.ID
	if id == "" {
		id = fmt.Sprintf("%s:%d", msg.Topic, msg.Offset)
	}

	return execution.RunReport{
		ID:        id,
		ChannelID: e.ChannelID,
		MessageID: e.MessageID,
		Trigger:   execution.Trigger(e.Trigger),
		Request: execution.Request{
			Language: execution.Language(e.Language),
			Source:   e.Code,
			Stdin:    e.Stdin,
		},
		Outcome:  outcome,
		Duration: time.Duration(e.DurationMs) * time.Millisecond,
		Backend:  e.Backend,
	}, nil
}
