package prompt

import "testing"

func TestBuilder(t *testing.T) {
	got := NewBuilder().
		AddLabeled("Question", "why is the VPN slow?").
		AddLabeled("Prior answer", "").
		AddNumbered("Reference passages", []string{"first", "second"}, "none found").
		Add("Return JSON only.").
		Build()

	want := "Question: why is the VPN slow?\n" +
		"Reference passages:\n" +
		"[1] first\n" +
		"[2] second\n" +
		"Return JSON only."
	if got != want {
		t.Fatalf("unexpected prompt:\n%q\nwant:\n%q", got, want)
	}
}

func TestAddNumberedEmpty(t *testing.T) {
	got := NewBuilder().AddNumbered("Reference passages", nil, "none found").Build()
	if got != "Reference passages: none found\n" {
		t.Fatalf("unexpected prompt %q", got)
	}
}

func TestReset(t *testing.T) {
	b := NewBuilder().AddLine("first")
	if b.Reset().Build() != "" {
		t.Fatal("Reset did not clear parts")
	}
	if got := b.AddFormat("n=%d", 7).Build(); got != "n=7" {
		t.Fatalf("builder unusable after reset: %q", got)
	}
}
