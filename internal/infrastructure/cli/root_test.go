package cli

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStripGlobalFlags(t *testing.T) {
	cases := []struct {
		name      string
		args      []string
		wantRest  []string
		wantNoNLP bool
		wantMode  string
	}{
		{"untouched", []string{"-c", "home", "fix sink"}, []string{"-c", "home", "fix sink"}, false, ""},
		{"no-nlp", []string{"--no-nlp", "task"}, []string{"task"}, true, ""},
		{"mode separate", []string{"task", "--mode", "parallel"}, []string{"task"}, false, "parallel"},
		{"mode joined", []string{"--mode=dependent", "record"}, []string{"record"}, false, "dependent"},
		{"dangling mode", []string{"--mode"}, []string{"--mode"}, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rest, noNLP, mode := stripGlobalFlags(tc.args)
			if diff := cmp.Diff(tc.wantRest, rest); diff != "" {
				t.Fatalf("rest mismatch (-want +got):\n%s", diff)
			}
			if noNLP != tc.wantNoNLP || mode != tc.wantMode {
				t.Fatalf("noNLP=%v mode=%q, want %v %q", noNLP, mode, tc.wantNoNLP, tc.wantMode)
			}
		})
	}
}

func TestGlobalFlagsExecutionMode(t *testing.T) {
	if mode, err := (globalFlags{}).executionMode(); err != nil || mode != "" {
		t.Fatalf("empty flag should defer to config, got %q %v", mode, err)
	}
	if _, err := (globalFlags{mode: "sideways"}).executionMode(); err == nil {
		t.Fatal("unknown mode should fail")
	}
}
