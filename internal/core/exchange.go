package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exchange is one question/answer pair of a conversation.
type Exchange struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// NewExchange creates an exchange with a fresh identifier and an empty answer.
func NewExchange(question string) Exchange {
	return Exchange{
		ID:        uuid.NewString(),
		Question:  question,
		CreatedAt: time.Now(),
	}
}

// ModelSelection identifies the model, temperature and system prompt used for one request.
type ModelSelection struct {
	Name        string `json:"option" yaml:"option"`
	Temperature string `json:"temperature" yaml:"temperature"`
	Prompt      string `json:"prompt" yaml:"prompt"`
}

// ParseTemperature returns the numeric temperature, or nil when it is unset,
// unparsable or not finite so the provider default applies.
func (m ModelSelection) ParseTemperature() *float64 {
	raw := strings.TrimSpace(m.Temperature)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Validate checks that a model name is present.
func (m ModelSelection) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}
