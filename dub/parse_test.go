package dub

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	type test struct {
		input string
		want  Command
	}
	tests := []test{
		{
			input: "set synth env.attack 0.25",
			want: Command{
				Name: "set",
				Args: []Node{Identifier("synth"), Identifier("env.attack"), Number(0.25)},
			},
		},
		{
			input: `load-sound drums "kick.wav" 60`,
			want: Command{
				Name: "load-sound",
				Args: []Node{Identifier("drums"), String("kick.wav"), Number(60)},
			},
		},
		{
			input: "loop a synth 4 [60 (64 67) [62 -1]]",
			want: Command{
				Name: "loop",
				Args: []Node{
					Identifier("a"),
					Identifier("synth"),
					Number(4),
					Array{
						Number(60),
						Tuple{Number(64), Number(67)},
						Array{Number(62), Number(-1)},
					},
				},
			},
		},
		{
			input: "loop b synth 1 []",
			want: Command{
				Name: "loop",
				Args: []Node{Identifier("b"), Identifier("synth"), Number(1), Array{}},
			},
		},
		{
			input: "props",
			want:  Command{Name: "props"},
		},
	}
	for _, test := range tests {
		got, err := Parse(test.input)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.input, err)
			continue
		}
		if !reflect.DeepEqual(test.want, got) {
			t.Errorf("%q:\nwant: %#v\ngot:  %#v", test.input, test.want, got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"1 2",
		"loop [1 2",
		"loop (1 2]",
		"loop ]",
		`"set"`,
	} {
		if _, err := Parse(input); err == nil {
			t.Errorf("expected error for input: %q", input)
		}
	}
}

func TestNodeString(t *testing.T) {
	node := Array{Number(60), Tuple{Number(0.5), Identifier("x")}, String("a b")}
	if want, got := `[60 (0.5 x) "a b"]`, node.String(); want != got {
		t.Errorf("want %s, got %s", want, got)
	}
}
