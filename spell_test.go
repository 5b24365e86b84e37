package analyzer

import "testing"

func TestSpellCheck(t *testing.T) {
	checker := newSpellChecker()

	tests := []struct {
		name           string
		text           string
		wantMisspelled int
		wantRate       float64
	}{
		{
			name:           "clean text",
			text:           "the senate passed the budget after a lengthy debate",
			wantMisspelled: 0,
			wantRate:       0,
		},
		{
			name:           "one known misspelling",
			text:           "they will recieve the report tomorrow",
			wantMisspelled: 1,
			wantRate:       1.0 / 6.0,
		},
		{
			name:           "capitalized tokens are skipped",
			text:           "Recieve Tuesday London",
			wantMisspelled: 0,
			wantRate:       0,
		},
		{
			name:           "empty text",
			text:           "",
			wantMisspelled: 0,
			wantRate:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			misspelled, rate := checker.Check(tt.text)
			if misspelled != tt.wantMisspelled {
				t.Errorf("misspelled = %d, want %d", misspelled, tt.wantMisspelled)
			}
			if diff := rate - tt.wantRate; diff > 0.0001 || diff < -0.0001 {
				t.Errorf("rate = %f, want %f", rate, tt.wantRate)
			}
		})
	}
}

func TestSpellCheckSkipsShortTokens(t *testing.T) {
	checker := newSpellChecker()

	// Single letters never count toward the checked total.
	misspelled, rate := checker.Check("a b c")
	if misspelled != 0 || rate != 0 {
		t.Errorf("Check() = (%d, %f), want (0, 0)", misspelled, rate)
	}
}
