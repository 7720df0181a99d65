package common

import (
	"context"
	"fmt"

	"snapscreen/internal/analyzer"
	"snapscreen/internal/errors"
)

// CreateInputFunc builds the operation input from the contents of the named files.
type CreateInputFunc[Input any] func(files []string, contents []string) (Input, error)

// LogDetailsFunc logs the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AnalyzeFunc is any operation that may consume model tokens.
type AnalyzeFunc[Input, Output any] func(context.Context, Input) (Output, *analyzer.TokenUsage, error)

// RunFileCommand reads the files named by args, runs operation on the input
// built from them and writes the formatted result.
func RunFileCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	operation AnalyzeFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)
	if cmdConfig.Out != nil {
		outputHandler.out = cmdConfig.Out
	}

	contents, err := fileProcessor.ValidateAndReadFiles(args...)
	if err != nil {
		return err
	}

	input, err := createInput(args, contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, tokenUsage, err := operation(ctx, input)
	if err != nil {
		return err
	}

	if tokenUsage != nil {
		logger.Info("Model token usage", "input_tokens", tokenUsage.InputTokens,
			"output_tokens", tokenUsage.OutputTokens, "total_tokens", tokenUsage.TotalTokens)
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
