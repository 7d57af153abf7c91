package cli

import (
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

func TestSplitSymptoms(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"cough"}, []string{"cough"}},
		{[]string{"cough,fever"}, []string{"cough", "fever"}},
		{[]string{"sore throat", "fever, ", ","}, []string{"sore throat", "fever"}},
		{[]string{" , "}, nil},
	}
	for _, tt := range tests {
		got := splitSymptoms(tt.args)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitSymptoms(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestGetThreshold(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().Int("threshold", 0, "")
		return cmd
	}

	cmd := newCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	if got := getThreshold(cmd); got != nil {
		t.Errorf("expected nil threshold when unset, got %d", *got)
	}

	cmd = newCmd()
	if err := cmd.ParseFlags([]string{"--threshold", "0"}); err != nil {
		t.Fatal(err)
	}
	if got := getThreshold(cmd); got == nil || *got != 0 {
		t.Errorf("expected explicit zero threshold, got %v", got)
	}
}
