package logging

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		level       string
		wantErr     bool
	}{
		{name: "production info", environment: "production", level: "info"},
		{name: "development debug", environment: "development", level: "debug"},
		{name: "empty level defaults", environment: "production", level: ""},
		{name: "bad level", environment: "production", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.environment, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if logger != nil {
				_ = logger.Sync()
			}
		})
	}
}
