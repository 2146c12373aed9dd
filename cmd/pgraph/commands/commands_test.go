package commands

import (
	"testing"

	"github.com/l3aro/go-program-graph/internal/config"
	"github.com/l3aro/go-program-graph/pkg/artifact"
	"github.com/l3aro/go-program-graph/pkg/dfg"
)

func TestOutputFormat(t *testing.T) {
	cfg = config.DefaultConfig()
	cfg.Output.Format = "msgpack"
	t.Cleanup(func() { cfg = nil })

	tests := []struct {
		flag, output string
		want         artifact.Format
	}{
		{"npz", "out.msgpack", artifact.FormatNPZ},
		{"", "out.msgpack", artifact.FormatMsgpack},
		{"", "out.npz", artifact.FormatNPZ},
		{"", "", artifact.FormatMsgpack},
	}
	for _, tt := range tests {
		got, err := outputFormat(tt.flag, tt.output)
		if err != nil {
			t.Fatalf("outputFormat(%q, %q) error: %v", tt.flag, tt.output, err)
		}
		if got != tt.want {
			t.Errorf("outputFormat(%q, %q) = %q, want %q", tt.flag, tt.output, got, tt.want)
		}
	}

	if _, err := outputFormat("csv", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFormatReachSet(t *testing.T) {
	if got := formatReachSet(nil); got != "-" {
		t.Errorf("empty set = %q, want -", got)
	}

	rs := dfg.ReachSet{
		"y": dfg.NewDefSet("0x30"),
		"x": dfg.NewDefSet("0x10", "0x20"),
	}
	want := "x={0x10,0x20} y={0x30}"
	if got := formatReachSet(rs); got != want {
		t.Errorf("formatReachSet = %q, want %q", got, want)
	}
}
