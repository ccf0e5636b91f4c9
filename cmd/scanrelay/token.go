package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jdelaire/scanrelay/internal/keychain"
)

// tokenCommands manage the bot token in the keychain. Each returns a
// confirmation for stderr.
var tokenCommands = map[string]func(stdin io.Reader) (string, error){
	"set-token":   setToken,
	"clear-token": clearToken,
}

// setToken reads the bot token from stdin and stores it in the keychain.
func setToken(stdin io.Reader) (string, error) {
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read token: %w", err)
	}
	if err := keychain.Set(keychain.TokenAccount, strings.TrimSpace(line)); err != nil {
		return "", err
	}
	return "token stored in keychain", nil
}

func clearToken(io.Reader) (string, error) {
	err := keychain.Delete(keychain.TokenAccount)
	switch {
	case errors.Is(err, keychain.ErrNotFound):
		return "no token in keychain", nil
	case err != nil:
		return "", err
	}
	return "token removed from keychain", nil
}
