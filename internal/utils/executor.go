package utils

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type CommandExecutor interface {
	Execute(ctx context.Context, command string, args ...string) ([]byte, error)

	// Process metrics methods
	GetProcessMemory(ctx context.Context, pid int) ([]byte, error)
}

type SystemCommandExecutor struct {
	logger *zap.Logger
}

func NewSystemCommandExecutor(logger *zap.Logger) *SystemCommandExecutor {
	return &SystemCommandExecutor{
		logger: logger,
	}
}

// Execute executes a command and returns the output
// Args:
// - ctx: context.Context
// - command: string
// - args: []string
// Returns:
// - []byte: output of the command
// - error: error if the command fails
func (e *SystemCommandExecutor) Execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	e.logger.Debug("Executing command",
		zap.String("command", command),
		zap.Strings("args", args),
	)

	output, err := cmd.Output()
	if err != nil {
		e.logger.Error("Command execution failed",
			zap.String("command", command),
			zap.Strings("args", args),
			zap.Error(err),
		)
		return nil, err
	}

	return output, nil
}

// GetProcessMemory gets resident/virtual size and page fault counts of a process
// The command it runs is:
// - ps -o rss=,vsz=,min_flt=,maj_flt= -p pid
func (e *SystemCommandExecutor) GetProcessMemory(ctx context.Context, pid int) ([]byte, error) {
	return e.Execute(ctx, "ps", "-o", "rss=,vsz=,min_flt=,maj_flt=", "-p", strconv.Itoa(pid))
}

// ParseCommandOutput splits command output into trimmed, non-empty lines
func ParseCommandOutput(output []byte) []string {
	lines := strings.Split(string(output), "\n")
	var result []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}
