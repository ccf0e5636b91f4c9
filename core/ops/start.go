package ops

import "context"

// WelcomeText is the reply to /start.
const WelcomeText = "Welcome! Bot is live. Use /scan SYMBOL (admin only)."

// StartOp greets the sender. It is open to every chat.
type StartOp struct{}

func (s *StartOp) Name() string        { return "start" }
func (s *StartOp) Description() string { return "Show the welcome message" }

func (s *StartOp) Execute(_ context.Context, _ Request) (string, error) {
	return WelcomeText, nil
}
