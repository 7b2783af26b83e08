package nlp

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "   \t\n", []string{}},
		{"simple", "Hello there", []string{"Hello", "there"}},
		{"punctuation dropped", "When are you open?", []string{"When", "are", "you", "open"}},
		{"unicode letters", "café crème", []string{"café", "crème"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello", "hello"},
		{"running", "run"},
		{"classes", "class"},
		{"HI", "hi"},
	}
	for _, tt := range tests {
		if got := Stem(tt.in); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStem_MergesVariants(t *testing.T) {
	if Stem("Trainers") != Stem("trainer") {
		t.Errorf("Stem(Trainers)=%q Stem(trainer)=%q should match", Stem("Trainers"), Stem("trainer"))
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("Are you RUNNING classes today?")
	want := []string{Stem("are"), Stem("you"), "run", "class", Stem("today")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
	if got := Normalize(""); len(got) != 0 {
		t.Errorf("Normalize(\"\") = %v, want empty", got)
	}
}

func TestIgnored(t *testing.T) {
	for _, tok := range []string{"?", ".", "!", ","} {
		if !Ignored(tok) {
			t.Errorf("Ignored(%q) = false", tok)
		}
	}
	if Ignored("gym") {
		t.Error("Ignored(gym) = true")
	}
}
