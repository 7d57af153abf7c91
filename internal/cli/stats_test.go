package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rcliao/symptrack/internal/store"
)

func TestWriteStatsText(t *testing.T) {
	var buf bytes.Buffer
	writeStatsText(&buf, &store.Stats{
		DeviceID:      "dev-1",
		TotalEpisodes: 3,
		TotalEntries:  5,
		ByStatus:      map[string]int{"active": 2, "resolved": 1},
		ByTrend:       map[string]int{"worsening": 1, "improving": 3},
	})

	out := buf.String()
	for _, want := range []string{
		"3 episode(s), 5 entr(ies) across device dev-1",
		"  active     2\n",
		"  resolved   1\n",
		"  archived   0\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "improving") > strings.Index(out, "worsening") {
		t.Errorf("trends not sorted:\n%s", out)
	}
}
