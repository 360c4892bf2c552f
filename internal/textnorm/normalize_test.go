package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "empty", input: "", expect: ""},
		{name: "lower-cases ascii", input: "PostgreSQL", expect: "postgresql"},
		{name: "collapses whitespace", input: "  Machine \t  Learning \n", expect: "machine learning"},
		{name: "strips latin diacritics", input: "Café Résumé", expect: "cafe resume"},
		{name: "strips arabic harakat", input: "بَايْثُون", expect: "بايثون"},
		{name: "folds hamza on alef", input: "الأمن", expect: "الامن"},
		{name: "folds madda on alef", input: "آلي", expect: "الي"},
		{name: "folds alef maksura", input: "مستوى", expect: "مستوي"},
		{name: "folds teh marbuta", input: "سنة", expect: "سنه"},
		{name: "folds farsi yeh", input: "فارسی", expect: "فارسي"},
		{name: "removes tatweel", input: "بـــايثون", expect: "بايثون"},
		{name: "maps arabic-indic digits", input: "٥ سنوات", expect: "5 سنوات"},
		{name: "maps eastern arabic-indic digits", input: "۱۲۳", expect: "123"},
		{name: "compatibility forms", input: "ＧＯ", expect: "go"},
		{name: "keeps punctuation", input: "C++", expect: "c++"},
		{name: "invalid utf8 is dropped", input: "go\xff", expect: "go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Python 3",
		"  Ñandú  Über ",
		"الذكاء الاصطناعي",
		"تعلم آلي",
		"إدارة الخوادم",
		"٢٠٢٤",
		"ﬁle ℌello",
		"İstanbul",
	}

	for _, input := range inputs {
		once := Normalize(input)
		if twice := Normalize(once); twice != once {
			t.Fatalf("normalize is not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestHasNonLatinLetters(t *testing.T) {
	t.Parallel()

	if HasNonLatinLetters("python 3.11") {
		t.Fatalf("latin text reported as non-latin")
	}
	if !HasNonLatinLetters("بايثون") {
		t.Fatalf("arabic text reported as latin")
	}
	if HasNonLatinLetters("c++ / c#") {
		t.Fatalf("symbols must not count as letters")
	}
}
