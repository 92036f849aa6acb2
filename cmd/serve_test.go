package cmd

import "testing"

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCmd()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("Failed to find serve command: %v", err)
	}

	if serveCmd.Flags().Lookup("host") == nil {
		t.Error("Expected host flag to be registered")
	}
	if serveCmd.Flags().Lookup("port") == nil {
		t.Error("Expected port flag to be registered")
	}
}

func TestServeCommandRegistered(t *testing.T) {
	cmd := NewRootCmd()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	if err != nil || serveCmd.Name() != "serve" {
		t.Fatalf("Expected serve command to be registered, got %v", err)
	}

	if serveCmd.RunE == nil {
		t.Error("Expected serve command to have a run function")
	}
}
