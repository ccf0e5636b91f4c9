package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdelaire/scanrelay/core/ops"
	"github.com/jdelaire/scanrelay/core/policy"
	"github.com/jdelaire/scanrelay/internal/scoring"
)

const (
	opTimeout   = 30 * time.Second
	sendTimeout = 10 * time.Second
)

// ErrSymbolRequired is returned by Trigger when the request has no symbol.
var ErrSymbolRequired = errors.New("symbol required")

// Dispatcher routes inbound messages to ops and sends their replies.
// It never reports failures to its caller; they end up in the chat or the log.
type Dispatcher struct {
	ops      *ops.Registry
	policy   *policy.Policy
	scorer   ops.Scorer
	notifier Notifier
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opsReg *ops.Registry, pol *policy.Policy, scorer ops.Scorer, notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		ops:      opsReg,
		policy:   pol,
		scorer:   scorer,
		notifier: notifier,
		logger:   logger,
	}
}

// Handle processes an inbound message: parse, execute, respond.
// Text that is not a known command is ignored.
func (d *Dispatcher) Handle(ctx context.Context, msg InboundMessage) Delivery {
	cmd, args := parseCommand(msg.Text)
	if cmd == "" {
		return Delivery{}
	}

	op := d.ops.Get(cmd)
	if op == nil {
		d.logger.Debug("ignoring unknown command", "command", cmd, "chat_id", msg.ChatID)
		return Delivery{}
	}

	logger := d.logger.With("request_id", uuid.NewString(), "op", cmd, "chat_id", msg.ChatID)

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	text, err := op.Execute(opCtx, ops.Request{
		ChatID: msg.ChatID,
		UserID: msg.UserID,
		Args:   args,
	})
	if err != nil {
		logger.Error("op failed", "error", err)
		text = failureReply(op)
	}

	return d.respond(ctx, logger, msg.ChatID, text)
}

// Trigger runs a scan outside the chat flow. The reply goes to req.ReplyTo,
// or to the admin chat when no target is given.
func (d *Dispatcher) Trigger(ctx context.Context, req ScanRequest) (scoring.Result, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return scoring.Result{}, ErrSymbolRequired
	}

	logger := d.logger.With("request_id", uuid.NewString(), "op", "trigger", "symbol", symbol)
	target, hasTarget := d.replyTarget(req)
	if !hasTarget {
		logger.Warn("no reply_to and no admin chat configured; result will not be sent")
	}

	result, err := d.scorer.Evaluate(ctx, symbol)
	if err != nil {
		logger.Error("scan failed", "error", err)
		if hasTarget {
			d.respond(ctx, logger, target, ops.ScanFailureText)
		}
		return scoring.Result{}, fmt.Errorf("evaluate %s: %w", symbol, err)
	}

	if hasTarget {
		d.respond(ctx, logger, target, ops.FormatResult(result))
	}
	return result, nil
}

func (d *Dispatcher) replyTarget(req ScanRequest) (int64, bool) {
	if req.ReplyTo != nil && *req.ReplyTo != 0 {
		return *req.ReplyTo, true
	}
	return d.policy.Admin()
}

// respond sends text to chatID. The send outlives a cancelled inbound
// request but is bounded by sendTimeout.
func (d *Dispatcher) respond(ctx context.Context, logger *slog.Logger, chatID int64, text string) Delivery {
	n := Notification{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Text:      text,
		Source:    "dispatcher",
		CreatedAt: time.Now(),
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	err := d.notifier.Send(sendCtx, n)
	switch {
	case err == nil:
		logger.Info("reply sent", "notification_id", n.ID)
		return Delivery{Status: Delivered}
	case errors.Is(err, ErrDeliverySkipped):
		return Delivery{Status: Skipped, Err: err}
	default:
		logger.Error("failed to send response", "notifier", d.notifier.Name(), "error", err)
		return Delivery{Status: Failed, Err: err}
	}
}

func failureReply(op ops.Op) string {
	if fr, ok := op.(ops.FailureReplier); ok {
		return fr.FailureReply()
	}
	return fmt.Sprintf("Error running /%s", op.Name())
}

// parseCommand extracts the command name and arguments from a message.
// It handles "/command", "/command args", and "/command@botname args".
func parseCommand(text string) (cmd string, args []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}

	cmd = fields[0][1:] // strip leading "/"

	// Strip @botname suffix.
	if at := strings.Index(cmd, "@"); at != -1 {
		cmd = cmd[:at]
	}

	cmd = strings.ToLower(cmd)
	if cmd == "" {
		return "", nil
	}
	if len(fields) > 1 {
		args = fields[1:]
	}
	return cmd, args
}
