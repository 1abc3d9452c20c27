package orchestration

import "testing"

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Hallo Welt.", want: "Hallo Welt."},
		{name: "emphasis", in: "Das ist **wichtig**.", want: "Das ist wichtig."},
		{name: "heading", in: "## Zusammenfassung", want: "Zusammenfassung"},
		{name: "inline code", in: "Nutze `go test`.", want: "Nutze go test."},
		{name: "numbered list", in: "1. Erstens\n2) Zweitens", want: "Erstens Zweitens"},
		{name: "emoji", in: "Super 😀👍!", want: "Super !"},
		{name: "only markup", in: "** ##", want: ""},
		{name: "decimal kept", in: "Pi ist 3.14", want: "Pi ist 3.14"},
		{name: "underscore kept", in: "Die Datei heißt read_me.txt", want: "Die Datei heißt read_me.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanForSpeech(tt.in); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
