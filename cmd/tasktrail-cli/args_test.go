package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/persistorai/tasktrail/internal/auth"
)

// executeArgs runs the given root command with args and returns stdout and any error.
func executeArgs(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out strings.Builder
	root.SetOut(&out)
	root.SetErr(&strings.Builder{})
	root.SetArgs(args)
	_, err := root.ExecuteC()
	return out.String(), err
}

// newTestRoot builds the real command tree with client setup stubbed out,
// so only argument validation runs for commands that would call the API.
func newTestRoot(t *testing.T) *cobra.Command {
	t.Helper()
	orig := struct{ url, token, fmt string }{flagURL, flagToken, flagFmt}
	t.Cleanup(func() {
		flagURL, flagToken, flagFmt = orig.url, orig.token, orig.fmt
	})

	root := newRootCmd()
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {}
	return root
}

func TestTaskArgsValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "create needs title", args: []string{"task", "create"}, wantErr: "accepts 1 arg"},
		{name: "get needs id", args: []string{"task", "get"}, wantErr: "accepts 1 arg"},
		{name: "get rejects non-numeric id", args: []string{"task", "get", "abc"}, wantErr: "invalid task id"},
		{name: "delete rejects zero id", args: []string{"task", "delete", "0"}, wantErr: "invalid task id"},
		{name: "update rejects non-numeric id", args: []string{"task", "update", "four", "--title", "x"}, wantErr: "invalid task id"},
		{name: "update needs a field", args: []string{"task", "update", "4"}, wantErr: "nothing to update"},
		{name: "list takes no args", args: []string{"task", "list", "extra"}, wantErr: "unknown command"},
		{name: "token needs user", args: []string{"token"}, wantErr: "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeArgs(t, newTestRoot(t), tt.args...)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildUpdate_OnlyChangedFlags(t *testing.T) {
	var got *bool
	cmd := taskUpdateCmd()
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		completed, _ := cmd.Flags().GetBool("completed")
		req, err := buildUpdate(cmd, "", "", "", completed)
		if err != nil {
			return err
		}
		if req.Title != nil || req.Description != nil || req.Priority != nil {
			t.Errorf("unexpected fields set: %+v", req)
		}
		got = req.Completed
		return nil
	}
	cmd.SetArgs([]string{"5", "--completed=false"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got == nil || *got {
		t.Errorf("completed = %v, want explicit false", got)
	}
}

func TestBuildUpdate_ClearDescription(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "clear only", args: []string{"5", "--clear-description"}},
		{name: "conflicts with description", args: []string{"5", "--clear-description", "--description", "x"}, wantErr: "mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cleared bool
			cmd := taskUpdateCmd()
			cmd.SetOut(&strings.Builder{})
			cmd.SetErr(&strings.Builder{})
			cmd.RunE = func(cmd *cobra.Command, args []string) error {
				req, err := buildUpdate(cmd, "", "x", "", false)
				if err != nil {
					return err
				}
				cleared = req.ClearDescription
				return nil
			}
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if !cleared {
				t.Error("ClearDescription = false, want true")
			}
		})
	}
}

func TestTokenCmd_MintsVerifiableToken(t *testing.T) {
	const secret = "cli-test-secret-0123456789abcdef"
	t.Setenv("JWT_SECRET_KEY", secret)

	out, err := executeArgs(t, newTestRoot(t), "token", "alice", "--issuer", "tasktrail-test")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	sub, err := auth.NewVerifier([]byte(secret), "tasktrail-test").Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub != "alice" {
		t.Errorf("subject = %q, want alice", sub)
	}
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := executeArgs(t, newTestRoot(t), "token", "alice")
	if err == nil || !strings.Contains(err.Error(), "signing key required") {
		t.Errorf("expected signing key error, got %v", err)
	}
}
