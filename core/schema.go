package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jdelaire/scanrelay/internal/scoring"
)

const MaxPayloadBytes = 1 << 20

// ScanRequest is the body of a direct scan trigger.
type ScanRequest struct {
	Symbol  string `json:"symbol"`
	ReplyTo *int64 `json:"reply_to,omitempty"`
}

// Response is the JSON acknowledgement returned to HTTP callers.
type Response struct {
	OK     bool            `json:"ok"`
	Result *scoring.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ValidateScanRequest decodes and checks a scan trigger body.
func ValidateScanRequest(data []byte) (ScanRequest, error) {
	if len(data) > MaxPayloadBytes {
		return ScanRequest{}, fmt.Errorf("payload exceeds %d byte limit", MaxPayloadBytes)
	}

	var req ScanRequest
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&req); err != nil {
		return ScanRequest{}, fmt.Errorf("invalid JSON: %w", err)
	}

	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Symbol == "" {
		return ScanRequest{}, ErrSymbolRequired
	}
	return req, nil
}
