package dub

import "testing"

func TestLexer(t *testing.T) {
	type test struct {
		input  string
		expect []token
	}
	tests := []test{
		{
			input: "set synth env.attack 0.5",
			expect: []token{
				{typ: typeIdentifier, text: "set"},
				{typ: typeIdentifier, text: "synth"},
				{typ: typeIdentifier, text: "env.attack"},
				{typ: typeNumber, text: "0.5"},
				{typ: typeEOF},
			},
		},
		{
			input: "A 1 2",
			expect: []token{
				{typ: typeIdentifier, text: "A"},
				{typ: typeNumber, text: "1"},
				{typ: typeNumber, text: "2"},
				{typ: typeEOF},
			},
		},
		{
			input: "loop a synth 4 [60 (64 67) [62 62]]",
			expect: []token{
				{typ: typeIdentifier, text: "loop"},
				{typ: typeIdentifier, text: "a"},
				{typ: typeIdentifier, text: "synth"},
				{typ: typeNumber, text: "4"},
				{typ: typeLeftBracket, text: "["},
				{typ: typeNumber, text: "60"},
				{typ: typeLeftParen, text: "("},
				{typ: typeNumber, text: "64"},
				{typ: typeNumber, text: "67"},
				{typ: typeRightParen, text: ")"},
				{typ: typeLeftBracket, text: "["},
				{typ: typeNumber, text: "62"},
				{typ: typeNumber, text: "62"},
				{typ: typeRightBracket, text: "]"},
				{typ: typeRightBracket, text: "]"},
				{typ: typeEOF},
			},
		},
		{
			input: "1.0",
			expect: []token{
				{typ: typeNumber, text: "1.0"},
				{typ: typeEOF},
			},
		},
		{
			input: "-1.",
			expect: []token{
				{typ: typeNumber, text: "-1."},
				{typ: typeEOF},
			},
		},
		{
			input: "-.1",
			expect: []token{
				{typ: typeNumber, text: "-.1"},
				{typ: typeEOF},
			},
		},
		{
			input: `load-sound "kick 1.wav" 60 # the kick`,
			expect: []token{
				{typ: typeIdentifier, text: "load-sound"},
				{typ: typeString, text: `"kick 1.wav"`},
				{typ: typeNumber, text: "60"},
				{typ: typeEOF},
			},
		},
		{
			input: "preset\tlame-bass",
			expect: []token{
				{typ: typeIdentifier, text: "preset"},
				{typ: typeIdentifier, text: "lame-bass"},
				{typ: typeEOF},
			},
		},
	}
	for _, test := range tests {
		t.Log(test.input)
		tokens, err := lex(test.input)
		if err != nil {
			t.Errorf("unexpected lex error: %v", err)
			continue
		}
		if len(tokens) != len(test.expect) {
			t.Fatalf("token mismatch: \nwant: %+v, \ngot:  %+v", test.expect, tokens)
		}
		for i, got := range tokens {
			want := test.expect[i]
			if want.typ != got.typ {
				t.Errorf("wrong type: want %v, got %v", want, got)
			}
			if want.text != got.text {
				t.Errorf("wrong text: want %v, got %v", want, got)
			}
		}
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{
		"a -",
		"a .-",
		"a 1.2.3",
		"a 12ab",
		`a "open`,
		"a $",
		"env.attack!",
	} {
		_, err := lex(input)
		if err == nil {
			t.Errorf("expected error for input: %q", input)
		}
	}
}
