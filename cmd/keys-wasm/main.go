//go:build js && wasm

package main

import (
	"encoding/json"
	"time"
	"unsafe"

	"syscall/js"

	"github.com/cwbudde/algo-keys/piano"
)

const maxBlock = 128

var (
	renderer     *piano.Renderer
	engine       *piano.Engine
	outputBuffer []float32
)

func main() {
	// Keep program running
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmNoteOn", js.FuncOf(wasmNoteOn))
	js.Global().Set("wasmNoteOff", js.FuncOf(wasmNoteOff))
	js.Global().Set("wasmControlChange", js.FuncOf(wasmControlChange))
	js.Global().Set("wasmSetEnvelope", js.FuncOf(wasmSetEnvelope))
	js.Global().Set("wasmSetFlats", js.FuncOf(wasmSetFlats))
	js.Global().Set("wasmPrune", js.FuncOf(wasmPrune))
	js.Global().Set("wasmChord", js.FuncOf(wasmChord))
	js.Global().Set("wasmRoll", js.FuncOf(wasmRoll))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM keys module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	sampleRate := args[0].Int()
	flats := len(args) > 1 && args[1].Bool()

	renderer = piano.NewRenderer(sampleRate, 0.5)
	engine = piano.NewEngine(renderer.Clock(),
		piano.WithScheduler(renderer),
		piano.WithFlats(flats),
	)
	outputBuffer = make([]float32, maxBlock*2)

	println("Keys initialized at", sampleRate, "Hz")
	return nil
}

func wasmSetFlats(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return nil
	}
	engine.SetFlats(args[0].Bool())
	return nil
}

func handle(ev piano.Event) {
	if engine == nil {
		return
	}
	if err := engine.Handle(ev); err != nil {
		println("event failed:", err.Error())
	}
}

func wasmNoteOn(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	velocity := piano.UIVelocity
	if len(args) > 1 {
		velocity = args[1].Int()
	}
	handle(piano.NoteOnEvent(args[0].Int(), velocity))
	return nil
}

func wasmNoteOff(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	handle(piano.NoteOffEvent(args[0].Int()))
	return nil
}

func wasmControlChange(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	handle(piano.ControlEvent(args[0].Int(), args[1].Int()))
	return nil
}

// wasmSetEnvelope(attackMs, decayMs, sustain, releaseMs[, waveform]) applies
// to notes started afterwards.
func wasmSetEnvelope(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 || engine == nil {
		return nil
	}
	a := engine.Settings().Load()
	a.Attack = msArg(args[0])
	a.Decay = msArg(args[1])
	a.Sustain = args[2].Float()
	a.Release = msArg(args[3])
	if len(args) > 4 {
		if w, ok := piano.ParseWaveform(args[4].String()); ok {
			a.Waveform = w
		}
	}
	engine.Settings().Store(a.Sanitize())
	return nil
}

func wasmPrune(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return 0
	}
	return engine.Prune()
}

func wasmChord(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return "None"
	}
	return engine.Chord().String()
}

func wasmRoll(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return "[]"
	}
	b, err := json.Marshal(engine.Roll())
	if err != nil {
		return "[]"
	}
	return string(b)
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || renderer == nil {
		return 0
	}

	numFrames := args[0].Int()
	if numFrames > maxBlock {
		numFrames = maxBlock
	}

	output := renderer.Process(numFrames)
	copy(outputBuffer, output)

	// Return pointer to buffer in WASM linear memory
	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}

func msArg(v js.Value) time.Duration {
	return time.Duration(v.Float() * float64(time.Millisecond))
}
