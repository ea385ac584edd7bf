package model

import "testing"

func TestLanguageByKey(t *testing.T) {
	tests := []struct {
		key            string
		wantInternalID int
		wantJudgeID    int
		wantOK         bool
	}{
		{"js", 1, 63, true},
		{"cpp", 2, 54, true},
		{"python", 3, 71, true},
		{"rust", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			lang, ok := LanguageByKey(tt.key)
			if ok != tt.wantOK {
				t.Fatalf("LanguageByKey(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
			}
			if ok && (lang.InternalID != tt.wantInternalID || lang.JudgeID != tt.wantJudgeID) {
				t.Errorf("LanguageByKey(%q) = {internal %d, judge %d}, want {internal %d, judge %d}",
					tt.key, lang.InternalID, lang.JudgeID, tt.wantInternalID, tt.wantJudgeID)
			}
		})
	}
}

func TestLanguageByInternalID(t *testing.T) {
	lang, ok := LanguageByInternalID(2)
	if !ok || lang.Key != "cpp" {
		t.Errorf("LanguageByInternalID(2) = (%+v, %v), want cpp", lang, ok)
	}
	if _, ok := LanguageByInternalID(99); ok {
		t.Error("LanguageByInternalID(99) should not resolve")
	}
}

func TestLanguagesIsACopy(t *testing.T) {
	langs := Languages()
	if len(langs) != 3 {
		t.Fatalf("Languages() returned %d entries, want 3", len(langs))
	}
	langs[0].Key = "mutated"
	if again := Languages(); again[0].Key == "mutated" {
		t.Error("mutating the returned slice must not affect the table")
	}
}
