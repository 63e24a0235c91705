package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// marshalTokens stores an expression as a JSON array so tokens containing
// spaces survive the round trip.
func marshalTokens(tokens []string) (string, error) {
	if tokens == nil {
		tokens = []string{}
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return "", fmt.Errorf("marshal expression: %w", err)
	}
	return string(data), nil
}

func unmarshalTokens(data string) ([]string, error) {
	tokens := []string{}
	if err := json.Unmarshal([]byte(data), &tokens); err != nil {
		return nil, fmt.Errorf("unmarshal expression: %w", err)
	}
	return tokens, nil
}

func marshalShape(shape []int) (string, error) {
	if shape == nil {
		shape = []int{}
	}
	data, err := json.Marshal(shape)
	if err != nil {
		return "", fmt.Errorf("marshal shape: %w", err)
	}
	return string(data), nil
}

// unmarshalShape returns nil for an empty shape, matching a failed run.
func unmarshalShape(data string) ([]int, error) {
	var shape []int
	if err := json.Unmarshal([]byte(data), &shape); err != nil {
		return nil, fmt.Errorf("unmarshal shape: %w", err)
	}
	if len(shape) == 0 {
		return nil, nil
	}
	return shape, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse started_at: %w", err)
	}
	return t, nil
}
