// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"strings"
	"testing"

	"audiorelay/internal/config"
)

func TestVersion(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "commit") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestInvalidFlagsRejected(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown transcriber", []string{"serve", "--transcriber", "bogus"}, "unknown engine.transcriber"},
		{"port out of range", []string{"serve", "--port", "70000"}, "server.port"},
		{"gate above one", []string{"serve", "--gate-threshold", "2"}, "audio.gate_threshold"},
		{"missing config file", []string{"serve", "--config", "does-not-exist.yaml"}, "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCmd()
			root.SetArgs(tt.args)
			err := root.Execute()
			if err == nil {
				t.Fatal("Execute succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	root := newRootCmd()
	stream, _, err := root.Find([]string{"stream"})
	if err != nil {
		t.Fatal(err)
	}
	if err := stream.ParseFlags([]string{"--device", "3", "--record", "-o", "take.wav"}); err != nil {
		t.Fatal(err)
	}

	flags := &cliFlags{deviceID: 3, record: true, outputFile: "take.wav", serverURL: "ignored"}
	cfg := config.NewConfig()
	flags.apply(stream, cfg)

	if cfg.Client.InputDevice != 3 || !cfg.Client.Record || cfg.Client.OutputFile != "take.wav" {
		t.Errorf("client config = %+v", cfg.Client)
	}
	if cfg.Client.ServerURL != config.DefaultServerURL {
		t.Errorf("unset --server-url overrode ServerURL: %q", cfg.Client.ServerURL)
	}
}
