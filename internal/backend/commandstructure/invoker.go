package commandstructure

import (
	"fmt"
	"log/slog"
	"time"
)

// ExecuteCommands applies a sequence of commands from the default registry to an image in order
func ExecuteCommands(imageData []byte, commandConfigs []CommandConfig) ([]byte, error) {
	return ExecuteCommandsWith(DefaultRegistry, imageData, commandConfigs)
}

// ExecuteCommandsWith is ExecuteCommands against an explicit registry
func ExecuteCommandsWith(registry *CommandRegistry, imageData []byte, commandConfigs []CommandConfig) ([]byte, error) {
	start := time.Now()

	if len(commandConfigs) == 0 {
		slog.Debug("no image commands configured, returning original image")
		return imageData, nil
	}

	currentData := imageData
	for i, config := range commandConfigs {
		command, err := registry.Create(config.Name, config.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to create command at index %d (%s): %w", i, config.Name, err)
		}

		commandStart := time.Now()
		processedData, err := command.Execute(currentData)
		if err != nil {
			slog.Error("image command failed",
				"index", i,
				"command_name", config.Name,
				"error", err,
				"input_size_bytes", len(currentData))
			return nil, fmt.Errorf("command %s (index %d) failed: %w", config.Name, i, err)
		}

		slog.Debug("image command completed",
			"index", i,
			"command_name", config.Name,
			"duration_ms", time.Since(commandStart).Milliseconds(),
			"input_size_bytes", len(currentData),
			"output_size_bytes", len(processedData))

		currentData = processedData
	}

	slog.Info("image processing pipeline completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"command_count", len(commandConfigs),
		"final_size_bytes", len(currentData))

	return currentData, nil
}
