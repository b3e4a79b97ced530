package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/mrdg/segenv/audio"
	"github.com/mrdg/segenv/dub"
)

type instrumentFunc func(props *audio.Props, sampleRate float64, bufferSize int) (*audio.Instrument, error)

type env struct {
	out        io.Writer
	sequencer  *audio.Sequencer
	devices    map[string]audio.Device
	factories  map[string]instrumentFunc // how to build an offline copy of a device for render
	sampleRate int
	bufferSize int
}

func (e *env) device(name string) (audio.Device, error) {
	dev, ok := e.devices[name]
	if !ok {
		return nil, fmt.Errorf("unknown device: %s", name)
	}
	return dev, nil
}

func (e *env) setProp(device, prop string, v any) error {
	dev, err := e.device(device)
	if err != nil {
		return err
	}
	return dev.Set(prop, v)
}

func (e *env) getProp(device, prop string) (any, error) {
	dev, err := e.device(device)
	if err != nil {
		return nil, err
	}
	return dev.Get(prop)
}

func (e *env) receiver(device string) (audio.NoteReceiver, error) {
	dev, err := e.device(device)
	if err != nil {
		return nil, err
	}
	r, ok := dev.(audio.NoteReceiver)
	if !ok {
		return nil, fmt.Errorf("device is not playable: %s", device)
	}
	return r, nil
}

func (e *env) eval(input string) (dub.Node, error) {
	command, err := dub.Parse(input)
	if err != nil {
		return nil, err
	}
	name := string(command.Name)
	cmd, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", name)
	}
	if cmd.arity < 0 {
		arity := -cmd.arity
		if len(command.Args) < arity {
			return nil, fmt.Errorf("%s: wrong number of arguments: need at least %v, got %v",
				cmd.name, arity, len(command.Args))
		}
	} else if len(command.Args) != cmd.arity {
		return nil, fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
			cmd.name, cmd.arity, len(command.Args))
	}
	result, err := cmd.run(e, command.Args)
	if err != nil {
		return result, fmt.Errorf("%s error: %w", cmd.name, err)
	}
	return result, nil
}

// runScript evaluates one command per line. Blank lines and comments are skipped.
func (e *env) runScript(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := e.eval(line); err != nil {
			return fmt.Errorf("line %d: %w", n+1, err)
		}
	}
	return nil
}

// repl reads commands until the input ends or ctx is done.
func repl(ctx context.Context, env *env) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	stop := context.AfterFunc(ctx, func() { rl.Close() })
	defer stop()

	for {
		line, err := rl.Readline()
		if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(env.out, err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		result, err := env.eval(line)
		switch {
		case err != nil:
			fmt.Fprintln(env.out, err)
		case result != nil:
			fmt.Fprintln(env.out, result)
		}
	}
}

type command struct {
	name  string
	run   func(*env, []dub.Node) (dub.Node, error)
	arity int // -n means len(args) must be >= n
	usage string
}

var commands []command

func init() {
	commands = []command{
		{"set", setCommand, 3, "set <device> <prop> <value>"},
		{"get", getCommand, 2, "get <device> <prop>"},
		{"props", propsCommand, 1, "props <device>"},
		{"preset", presetCommand, -1, "preset <device> [name]"},
		{"on", onCommand, -2, "on <device> <pitch> [velocity]"},
		{"off", offCommand, 2, "off <device> <pitch>"},
		{"note", noteCommand, -3, "note <device> <pitch> <seconds> [velocity]"},
		{"loop", loopCommand, 4, "loop <name> <device> <beats> <pattern>"},
		{"stop", stopCommand, 1, "stop <name>"},
		{"plot", plotCommand, -1, "plot <device> [env|fenv]"},
		{"render", renderCommand, -4, "render <device> <file> <pitch> <seconds>"},
		{"load-sound", loadSoundCommand, 3, "load-sound <device> <file> <pitch>"},
		{"help", helpCommand, 0, "help"},
	}
}

func lookup(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func helpCommand(env *env, args []dub.Node) (dub.Node, error) {
	for _, cmd := range commands {
		fmt.Fprintln(env.out, cmd.usage)
	}
	names := make([]string, 0, len(env.devices))
	for name := range env.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(env.out, "devices: %s\n", strings.Join(names, " "))
	return nil, nil
}

func setCommand(env *env, args []dub.Node) (dub.Node, error) {
	var device, prop string
	if err := readArgs(args[:2], &device, &prop); err != nil {
		return nil, err
	}
	switch v := args[2].(type) {
	case dub.Number:
		// Integer properties such as choke groups are written as plain numbers.
		current, err := env.getProp(device, prop)
		if err != nil {
			return nil, err
		}
		if _, ok := current.(int); ok {
			return nil, env.setProp(device, prop, int(v))
		}
		return nil, env.setProp(device, prop, float64(v))
	case dub.String:
		return nil, env.setProp(device, prop, string(v))
	case dub.Identifier:
		return nil, env.setProp(device, prop, string(v))
	default:
		return nil, fmt.Errorf("unsupported property type: %v", v)
	}
}

func getCommand(env *env, args []dub.Node) (dub.Node, error) {
	var device, prop string
	if err := readArgs(args, &device, &prop); err != nil {
		return nil, err
	}
	v, err := env.getProp(device, prop)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case float64:
		return dub.Number(v), nil
	case int:
		return dub.Number(v), nil
	case string:
		return dub.Identifier(v), nil
	default:
		return dub.Identifier(formatValue(v)), nil
	}
}

func propsCommand(env *env, args []dub.Node) (dub.Node, error) {
	var device string
	if err := readArgs(args, &device); err != nil {
		return nil, err
	}
	dev, err := env.device(device)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(env.out, propsTable(dev))
	return nil, nil
}

func presetCommand(env *env, args []dub.Node) (dub.Node, error) {
	var device, name string
	if len(args) == 1 {
		if err := readArgs(args, &device); err != nil {
			return nil, err
		}
		fmt.Fprintln(env.out, strings.Join(audio.Presets(), " "))
		return nil, nil
	}
	if err := readArgs(args, &device, &name); err != nil {
		return nil, err
	}
	dev, err := env.device(device)
	if err != nil {
		return nil, err
	}
	return nil, audio.LoadPreset(name, dev)
}

func onCommand(env *env, args []dub.Node) (dub.Node, error) {
	device, pitch, velocity, err := readNoteArgs(args)
	if err != nil {
		return nil, err
	}
	r, err := env.receiver(device)
	if err != nil {
		return nil, err
	}
	return nil, r.NoteOn(pitch, velocity)
}

func offCommand(env *env, args []dub.Node) (dub.Node, error) {
	var device string
	var pitch int
	if err := readArgs(args, &device, &pitch); err != nil {
		return nil, err
	}
	r, err := env.receiver(device)
	if err != nil {
		return nil, err
	}
	return nil, r.NoteOff(pitch)
}

// noteCommand plays a note and releases it after the given number of seconds.
func noteCommand(env *env, args []dub.Node) (dub.Node, error) {
	var seconds float64
	if err := readArgs(args[2:3], &seconds); err != nil {
		return nil, err
	}
	if !(seconds >= 0) {
		return nil, fmt.Errorf("invalid note length: %v", seconds)
	}
	device, pitch, velocity, err := readNoteArgs(append(args[:2:2], args[3:]...))
	if err != nil {
		return nil, err
	}
	r, err := env.receiver(device)
	if err != nil {
		return nil, err
	}
	if err := r.NoteOn(pitch, velocity); err != nil {
		return nil, err
	}
	time.AfterFunc(time.Duration(seconds*float64(time.Second)), func() {
		if err := r.NoteOff(pitch); err != nil {
			fmt.Fprintln(env.out, err)
		}
	})
	return nil, nil
}

func readNoteArgs(args []dub.Node) (device string, pitch, velocity int, err error) {
	switch len(args) {
	case 2:
		err = readArgs(args, &device, &pitch)
	case 3:
		err = readArgs(args, &device, &pitch, &velocity)
	default:
		err = errors.New("want a device, a pitch and an optional velocity")
	}
	if err == nil && (pitch < 0 || pitch > 127) {
		err = fmt.Errorf("pitch out of range: %d", pitch)
	}
	return device, pitch, velocity, err
}

func loadSoundCommand(env *env, args []dub.Node) (dub.Node, error) {
	var device, file string
	var key int
	if err := readArgs(args, &device, &file, &key); err != nil {
		return nil, err
	}
	return nil, loadSound(env, device, file, key)
}

func loadSound(env *env, device, file string, key int) error {
	v, err := env.getProp(device, audio.PropSoundMap)
	if err != nil {
		return err
	}
	mapping, ok := v.(*audio.SoundMapping)
	if !ok {
		return fmt.Errorf("cannot convert %v to sound mapping", v)
	}
	sound, err := audio.LoadSound(file)
	if err != nil {
		return err
	}
	// copy the mapping so the audio thread never sees a partial update.
	m := *mapping
	if err := m.Put(key, sound); err != nil {
		return err
	}
	return env.setProp(device, audio.PropSoundMap, &m)
}

func loopCommand(env *env, args []dub.Node) (dub.Node, error) {
	var patternName, device string
	var length float64
	var pattern []dub.Node
	if err := readArgs(args, &patternName, &device, &length, &pattern); err != nil {
		return nil, err
	}
	if !(length > 0) {
		return nil, fmt.Errorf("invalid loop length: %v", length)
	}
	dev, err := env.device(device)
	if err != nil {
		return nil, err
	}
	playable, ok := dev.(audio.Playable)
	if !ok {
		return nil, fmt.Errorf("device is not playable: %s", device)
	}
	clip := audio.NewClip(length, playable)
	if err := evalPattern(pattern, clip, length, new(float64)); err != nil {
		return nil, err
	}
	return nil, updateClips(env, func(clips map[string]*audio.Clip) {
		clips[patternName] = clip
	})
}

func stopCommand(env *env, args []dub.Node) (dub.Node, error) {
	var patternName string
	if err := readArgs(args, &patternName); err != nil {
		return nil, err
	}
	return nil, updateClips(env, func(clips map[string]*audio.Clip) {
		delete(clips, patternName)
	})
}

// updateClips applies f to a copy of the sequencer's clips and stores the copy.
func updateClips(env *env, f func(map[string]*audio.Clip)) error {
	v, err := env.sequencer.Get(audio.PropClips)
	if err != nil {
		return err
	}
	old := v.(map[string]*audio.Clip)
	clips := make(map[string]*audio.Clip, len(old))
	for k, v := range old {
		clips[k] = v
	}
	f(clips)
	return env.sequencer.Set(audio.PropClips, clips)
}

// evalPattern adds the notes of pattern to clip. Each item of an array gets an
// equal share of divLength beats; nested arrays subdivide further and tuples
// play their notes together. Identifiers are rests.
func evalPattern(pattern dub.Array, clip *audio.Clip, divLength float64, pos *float64) error {
	noteLength := divLength / float64(len(pattern))
	for _, item := range pattern {
		switch v := item.(type) {
		case dub.Number:
			clip.AddNote(*pos, int(v), 0, noteLength)
			*pos += noteLength
		case dub.Identifier:
			*pos += noteLength
		case dub.Tuple:
			for _, item := range v {
				if i, ok := item.(dub.Number); ok {
					clip.AddNote(*pos, int(i), 0, noteLength)
				}
			}
			*pos += noteLength
		case dub.Array:
			if err := evalPattern(v, clip, noteLength, pos); err != nil {
				return err
			}
		default:
			return fmt.Errorf("invalid %v in pattern %v", v, pattern)
		}
	}
	return nil
}

// envShapeOf reads the envelope properties under prefix from dev.
func envShapeOf(dev audio.Device, prefix string) (envShape, error) {
	var shape envShape
	fields := []struct {
		key  string
		dest *float64
	}{
		{"attack", &shape.attack},
		{"decay", &shape.decay},
		{"sustain", &shape.sustain},
		{"release", &shape.release},
		{"overshoot", &shape.overshoot},
	}
	for _, f := range fields {
		v, err := dev.Get(prefix + "." + f.key)
		if err != nil {
			return shape, err
		}
		x, ok := v.(float64)
		if !ok {
			return shape, fmt.Errorf("%s.%s is not a number", prefix, f.key)
		}
		*f.dest = x
	}
	return shape, nil
}

func plotCommand(env *env, args []dub.Node) (dub.Node, error) {
	device, prefix := "", "env"
	var err error
	if len(args) == 1 {
		err = readArgs(args, &device)
	} else {
		err = readArgs(args, &device, &prefix)
	}
	if err != nil {
		return nil, err
	}
	dev, err := env.device(device)
	if err != nil {
		return nil, err
	}
	shape, err := envShapeOf(dev, prefix)
	if err != nil {
		return nil, err
	}
	points, err := traceShape(shape, plotWidth(env.out))
	if err != nil {
		return nil, err
	}
	plotShape(env.out, points, 12, shouldColorize(env.out))
	return nil, nil
}

// renderCommand plays one note on an offline copy of a device and writes it to
// a WAV file. The file includes the release tail.
func renderCommand(env *env, args []dub.Node) (dub.Node, error) {
	var device, file string
	var pitch int
	var seconds float64
	if err := readArgs(args[:4], &device, &file, &pitch, &seconds); err != nil {
		return nil, err
	}
	if !(seconds > 0) {
		return nil, fmt.Errorf("invalid length: %v", seconds)
	}
	dev, err := env.device(device)
	if err != nil {
		return nil, err
	}
	newInstrument, ok := env.factories[device]
	if !ok {
		return nil, fmt.Errorf("cannot render device: %s", device)
	}
	instr, err := newInstrument(audio.NewProps(), float64(env.sampleRate), env.bufferSize)
	if err != nil {
		return nil, err
	}
	for _, key := range dev.Keys() {
		v, err := dev.Get(key)
		if err != nil {
			return nil, err
		}
		if err := instr.Set(key, v); err != nil {
			return nil, err
		}
	}

	holdFrames := int(math.Round(seconds * float64(env.sampleRate)))
	numFrames := int(math.Round(renderLength(dev, pitch, seconds, env.sampleRate) * float64(env.sampleRate)))

	m := audio.NewMixer()
	m.AddTicker(&noteTicker{r: instr, pitch: pitch, offAt: holdFrames})
	m.AddSources(instr)

	f, err := os.Create(file)
	if err != nil {
		return nil, err
	}
	if err := audio.RenderWAV(f, m, env.sampleRate, env.bufferSize, numFrames); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return dub.String(file), nil
}

// renderLength returns how many seconds a note held for the given time lasts on
// dev. Devices with a release add it to the hold time. Sampler keys ignore note
// off, so they last until their decay or the end of their sound.
func renderLength(dev audio.Device, pitch int, seconds float64, sampleRate int) float64 {
	const pad = 0.05
	if v, err := dev.Get("env.release"); err == nil {
		return seconds + v.(float64) + pad
	}
	key := strconv.Itoa(pitch)
	attack, errA := dev.Get("env.attack." + key)
	decay, errD := dev.Get("env.decay." + key)
	if errA != nil || errD != nil {
		return seconds + 1
	}
	length := attack.(float64) + decay.(float64)
	if v, err := dev.Get(audio.PropSoundMap); err == nil {
		if snd := v.(*audio.SoundMapping).Get(pitch); snd != nil {
			length = math.Min(length, float64(snd.Len())/float64(sampleRate))
		}
	}
	return math.Max(seconds, length) + pad
}

// noteTicker starts a note on the first buffer and releases it in the buffer
// that contains frame offAt.
type noteTicker struct {
	r        audio.NoteReceiver
	pitch    int
	offAt    int
	frame    int
	on, done bool
}

func (t *noteTicker) Tick(numSamples int) {
	if !t.on {
		t.on = true
		if err := t.r.NoteOn(t.pitch, 127); err != nil {
			log.Printf("render: %v", err)
		}
	}
	if !t.done && t.frame+numSamples > t.offAt {
		t.done = true
		if err := t.r.NoteOff(t.pitch); err != nil {
			log.Printf("render: %v", err)
		}
	}
	t.frame += numSamples
}

func readArgs(args []dub.Node, slots ...any) error {
	if len(args) != len(slots) {
		return errors.New("not enough arguments")
	}
	for n, arg := range args {
		dest := slots[n]
		switch p := dest.(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			default:
				return fmt.Errorf("argument error: expected a string or identifier")
			}
		case *float64:
			n, ok := arg.(dub.Number)
			if !ok {
				return fmt.Errorf("argument error: expected a number")
			}
			*p = float64(n)
		case *int:
			n, ok := arg.(dub.Number)
			if !ok {
				return fmt.Errorf("argument error: expected a number")
			}
			*p = int(n)
		case *[]dub.Node:
			arr, ok := arg.(dub.Array)
			if !ok {
				return fmt.Errorf("argument error: expected an array")
			}
			*p = arr
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}
