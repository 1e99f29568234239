package emergency

import "testing"

func TestDetect_DefaultVocabulary(t *testing.T) {
	d := NewDetector(nil)
	tests := []struct {
		text string
		want bool
	}{
		{"I just had a blowout on I-80", true},
		{"there's been an accident up ahead and I'm involved", true},
		{"I'm having chest pain, I need help", true},
		{"EMERGENCY, pulling over now", true},
		{"I'm driving, should be there by 3pm", false},
		{"delayed at the shipper, dock was backed up", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := d.Detect(tt.text); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestDetect_SubstringSafeDefaults(t *testing.T) {
	// "hit" is left out of the defaults because substring matching would
	// find it inside everyday words. Operators who want it can configure
	// it explicitly.
	d := NewDetector(nil)
	if d.Detect("passed a white truck up ahead, all good") {
		t.Error("ordinary word containing 'hit' should not trigger")
	}
	if d.Detect("just unhooked the hitch at the yard") {
		t.Error("'hitch' should not trigger")
	}

	d = NewDetector([]string{"hit"})
	if !d.Detect("another truck hit my trailer") {
		t.Error("configured 'hit' keyword should match")
	}
}

func TestDetect_CaseInsensitive(t *testing.T) {
	d := NewDetector(nil)
	if !d.Detect("BREAKDOWN on Route 9") {
		t.Error("uppercase keyword should match")
	}
}

func TestDetect_MultiWordKeyword(t *testing.T) {
	d := NewDetector(nil)
	if !d.Detect("driver says i need help right away") {
		t.Error("multi-word keyword should match")
	}
}

func TestDetect_CustomVocabulary(t *testing.T) {
	d := NewDetector([]string{"jackknife", " Rollover "})

	if !d.Detect("trailer jackknifed... jackknife on the ramp") {
		t.Error("custom keyword should match")
	}
	if !d.Detect("we had a rollover") {
		t.Error("custom keywords should be trimmed and lowercased")
	}
	// Custom vocabulary replaces the default, not extends it
	if d.Detect("I had a blowout") {
		t.Error("default keyword should not match with custom vocabulary")
	}
}
