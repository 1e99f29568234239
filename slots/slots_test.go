package slots

import "testing"

func TestSet_Update_MonotonicConfidence(t *testing.T) {
	s := NewSet()

	if !s.Update(KeyLocation, "I-80", 0.85, 1) {
		t.Fatal("first update should be stored")
	}
	// Lower confidence never replaces a real value
	if s.Update(KeyLocation, "somewhere", 0.6, 2) {
		t.Error("lower-confidence update should be discarded")
	}
	if s.Value(KeyLocation) != "I-80" {
		t.Errorf("expected I-80, got %q", s.Value(KeyLocation))
	}
	// Equal or higher confidence replaces
	if !s.Update(KeyLocation, "Exit 42 on I-80", 0.85, 3) {
		t.Error("equal-confidence update should be stored")
	}
	if s[KeyLocation].Segment != 3 {
		t.Errorf("expected segment 3, got %d", s[KeyLocation].Segment)
	}
}

func TestSet_Update_ReplacesUnknown(t *testing.T) {
	s := NewSet()
	s.MarkUnknown(KeyETA)

	// Any real value beats a previous unknown regardless of confidence
	if !s.Update(KeyETA, "tomorrow", 0.55, 4) {
		t.Fatal("update over unknown should be stored")
	}
	if s.Value(KeyETA) != "tomorrow" {
		t.Errorf("expected tomorrow, got %q", s.Value(KeyETA))
	}
}

func TestSet_MarkUnknown_NeverDowngrades(t *testing.T) {
	s := NewSet()
	s.Update(KeyStatus, "Driving", 0.9, 0)

	s.MarkUnknown(KeyStatus)

	if s.Value(KeyStatus) != "Driving" {
		t.Errorf("expected Driving to survive MarkUnknown, got %q", s.Value(KeyStatus))
	}
}

func TestSet_FilledAndResolved(t *testing.T) {
	s := NewSet()

	if s.Filled(KeyStatus, DefaultThreshold) {
		t.Error("empty slot should not be filled")
	}
	if s.Resolved(KeyStatus, DefaultThreshold) {
		t.Error("empty slot should not be resolved")
	}

	s.Update(KeyStatus, "Driving", 0.4, 0)
	if s.Filled(KeyStatus, DefaultThreshold) {
		t.Error("below-threshold slot should not be filled")
	}

	s.Update(KeyStatus, "Driving", 0.9, 1)
	if !s.Filled(KeyStatus, DefaultThreshold) {
		t.Error("above-threshold slot should be filled")
	}

	s.MarkUnknown(KeyETA)
	if s.Filled(KeyETA, DefaultThreshold) {
		t.Error("unknown slot should not be filled")
	}
	if !s.Resolved(KeyETA, DefaultThreshold) {
		t.Error("unknown slot should be resolved")
	}
}

func TestSet_Missing_PreservesAskOrder(t *testing.T) {
	s := NewSet()
	s.Update(KeyLocation, "I-80", 0.85, 0)

	missing := s.Missing(RegularKeys, DefaultThreshold)
	if len(missing) != 2 || missing[0] != KeyStatus || missing[1] != KeyETA {
		t.Errorf("expected [status eta], got %v", missing)
	}
}

func TestSet_Values_SubstitutesUnknown(t *testing.T) {
	s := NewSet()
	s.Update(KeyStatus, "Arrived", 0.9, 0)

	vals := s.Values(RegularKeys...)
	if vals[KeyStatus] != "Arrived" {
		t.Errorf("expected Arrived, got %q", vals[KeyStatus])
	}
	if vals[KeyLocation] != Unknown || vals[KeyETA] != Unknown {
		t.Errorf("absent slots should read unknown, got %v", vals)
	}
}

func TestSet_Clone_IsIndependent(t *testing.T) {
	s := NewSet()
	s.Update(KeyStatus, "Driving", 0.9, 0)

	c := s.Clone()
	c.Update(KeyStatus, "Arrived", 0.95, 1)

	if s.Value(KeyStatus) != "Driving" {
		t.Errorf("clone mutation leaked into original: %q", s.Value(KeyStatus))
	}
}

func TestSet_Clear(t *testing.T) {
	s := NewSet()
	s.Update(KeyStatus, "Driving", 0.9, 0)
	s.Update(KeyEmergencyType, "Breakdown", 0.85, 1)

	s.Clear(RegularKeys...)

	if _, ok := s[KeyStatus]; ok {
		t.Error("status should be cleared")
	}
	if s.Value(KeyEmergencyType) != "Breakdown" {
		t.Error("emergency slots should survive a regular clear")
	}
}
