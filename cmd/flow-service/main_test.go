package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/config"
	"github.com/cuongbtq/batchflow/internal/storage/memory"
	"github.com/cuongbtq/batchflow/internal/worker"
)

func TestNewSweeper(t *testing.T) {
	tests := []struct {
		name        string
		sweeper     config.SweeperConfig
		wantSweeper bool
		wantErr     bool
	}{
		{name: "disabled", sweeper: config.SweeperConfig{Enabled: false, Schedule: "not a schedule"}},
		{name: "enabled", sweeper: config.SweeperConfig{Enabled: true, Schedule: "@every 30s", BatchSize: 50}, wantSweeper: true},
		{name: "invalid schedule", sweeper: config.SweeperConfig{Enabled: true, Schedule: "every minute"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Sweeper: tt.sweeper}

			sweeper, err := newSweeper(cfg, &worker.SweeperConfig{
				Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
				Jobs:   memory.New(),
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to create sweeper")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSweeper, sweeper != nil)
		})
	}
}
