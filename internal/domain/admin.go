package domain

import (
	"time"

	"opscore/internal/logging"
)

type LogsResponse struct {
	Count    int                `json:"count"`
	Limit    int                `json:"limit"`
	MaxLevel logging.Level      `json:"max_level"`
	Entries  []logging.LogEntry `json:"entries"`
}

type LogLevelRequest struct {
	Level string `json:"level"`
}

type LogLevelResponse struct {
	Level    logging.Level  `json:"level"`
	Previous *logging.Level `json:"previous,omitempty"`
}

type ActionResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
