package lifecycle

import "testing"

func TestSizeDelta(t *testing.T) {
	tests := []struct {
		in, out int64
		want    string
	}{
		{in: 1_000_000, out: 400_000, want: "60.0% smaller"},
		{in: 1_000_000, out: 1_000_000, want: "same size"},
		{in: 1_000_000, out: 1_200_000, want: "20.0% larger"},
		{in: 1000, out: 300, want: "70.0% smaller"},
		{in: 100_000, out: 99_999, want: "same size"},
		{in: 100_000, out: 100_001, want: "same size"},
		{in: 3, out: 2, want: "33.3% smaller"},
		{in: 0, out: 10, want: ""},
		{in: 10, out: 0, want: ""},
	}
	for _, tc := range tests {
		if got := SizeDelta(tc.in, tc.out); got != tc.want {
			t.Fatalf("SizeDelta(%d, %d) = %q, want %q", tc.in, tc.out, got, tc.want)
		}
	}
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		input, output, want string
	}{
		{input: "photo.png", output: "photo.webp", want: "photo-iloveconvertion.webp"},
		{input: "archive.tar.gz", output: "archive.tar.mp3", want: "archive.tar-iloveconvertion.mp3"},
		{input: "README", output: "README.pdf", want: "README-iloveconvertion.pdf"},
		{input: ".hidden", output: "x.png", want: ".hidden-iloveconvertion.png"},
		{input: "clip.mov", output: "", want: "clip-iloveconvertion"},
		{input: "clip.mov", output: "converted", want: "clip-iloveconvertion"},
		{input: "", output: "out.mp4", want: "output-iloveconvertion.mp4"},
	}
	for _, tc := range tests {
		if got := DownloadName(tc.input, tc.output); got != tc.want {
			t.Fatalf("DownloadName(%q, %q) = %q, want %q", tc.input, tc.output, got, tc.want)
		}
	}
}

func TestDownloadURL(t *testing.T) {
	if got := DownloadURL("http://svc.test/", "a b"); got != "http://svc.test/api/jobs/a%20b/download" {
		t.Fatalf("DownloadURL = %q", got)
	}
}

func TestTransitionTable(t *testing.T) {
	legal := [][2]State{
		{StateIdle, StateUploading},
		{StateUploading, StateAwaitingServer},
		{StateAwaitingServer, StatePolling},
		{StatePolling, StateSuccess},
		{StatePolling, StateError},
		{StateSuccess, StateUploading},
		{StateError, StateIdle},
	}
	for _, m := range legal {
		if !canMove(m[0], m[1]) {
			t.Fatalf("%s -> %s should be allowed", m[0], m[1])
		}
	}
	illegal := [][2]State{
		{StateIdle, StatePolling},
		{StateIdle, StateSuccess},
		{StateUploading, StateSuccess},
		{StateSuccess, StateError},
		{StatePolling, StateUploading},
	}
	for _, m := range illegal {
		if canMove(m[0], m[1]) {
			t.Fatalf("%s -> %s should be rejected", m[0], m[1])
		}
	}
	for s := StateIdle; s <= StateError; s++ {
		if _, ok := allowed[s]; !ok {
			t.Fatalf("state %s has no transition entry", s)
		}
		if s.Busy() && s.Finished() {
			t.Fatalf("state %s is both busy and finished", s)
		}
	}
	if !StateSuccess.Finished() || !StateError.Finished() || StateIdle.Finished() || StatePolling.Finished() {
		t.Fatalf("Finished misreports outcome states")
	}
}
