// Package agent implements the study assistant exchange.
package agent

import (
	"time"

	"github.com/studylock/studylock/internal/domain"
)

// SystemInstruction is sent with every request to the text-generation service.
const SystemInstruction = "You are the StudyLock Assistant. You help students focus, manage their time, " +
	"and build better study habits. Keep your responses concise, encouraging, and actionable. " +
	"If the user asks in Hindi, respond in Hindi. If in English, respond in English."

// Temperature is the fixed sampling temperature.
const Temperature float32 = 0.7

// GenerateRequest is the full input of one text-generation call.
type GenerateRequest struct {
	SystemInstruction string
	Temperature       float32
	Turns             []domain.ChatTurn
}

// Owner identifies whose exchange is being recorded.
type Owner struct {
	UserID    string
	SessionID string
}

// Result describes one completed exchange.
type Result struct {
	ExchangeID string
	Owner      Owner
	Language   domain.Language
	UserText   string
	Reply      domain.ChatTurn
	Outcome    domain.Outcome
	Err        error
	StartedAt  time.Time
	Latency    time.Duration
}

// State is the position of an Exchange in its request cycle.
type State int

const (
	StateIdle State = iota
	StatePending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}
