package messages

import "testing"

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   map[string]string
		want   string
	}{
		{"no args", "plain %x%", nil, "plain %x%"},
		{"simple", "%depotFile% - opened for edit", map[string]string{"depotFile": "//depot/a"}, "//depot/a - opened for edit"},
		{"unknown name kept", "%missing% here", map[string]string{"x": "1"}, "%missing% here"},
		{"literal", "%'can't'% do %x%", map[string]string{"x": "it"}, "can't do it"},
		{"alternative first", "[%argc% - file(s)|File(s)] up-to-date.", map[string]string{"argc": "//a"}, "//a - file(s) up-to-date."},
		{"alternative second", "[%argc% - file(s)|File(s)] up-to-date.", map[string]string{"argc": ""}, "File(s) up-to-date."},
		{"optional present", "Change %change%[ (%status%)] created.", map[string]string{"change": "12", "status": "new"}, "Change 12 (new) created."},
		{"optional absent", "Change %change%[ (%status%)] created.", map[string]string{"change": "12"}, "Change 12 created."},
		{"bracket without args", "see [docs] for %x%", map[string]string{"x": "help"}, "see [docs] for help"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Interpolate(tt.format, tt.args); got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}
