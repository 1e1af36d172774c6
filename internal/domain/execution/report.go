package execution

import "time"

// Trigger names the chat event that caused an execution.
type Trigger string

const (
	TriggerNew  Trigger = "new"
	TriggerEdit Trigger = "edit"
)

// RunReport captures one execution for external observers.
type RunReport struct {
	ID        string
	ChannelID int64
	MessageID int64
	Trigger   Trigger
	Request   Request
	Outcome   Outcome
	Duration  time.Duration
	Backend   string
}
