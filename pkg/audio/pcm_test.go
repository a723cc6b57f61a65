package audio

import (
	"math"
	"slices"
	"testing"
)

func TestInt16Roundtrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 12345}
	if got := BytesToInt16s(Int16sToBytes(in)); !slices.Equal(got, in) {
		t.Errorf("roundtrip = %v, want %v", got, in)
	}
}

func TestPCMToFloat32(t *testing.T) {
	pcm := Int16sToBytes([]int16{0, 16384, -32768, 32767})
	got := PCMToFloat32(pcm)

	want := []float32{0, 0.5, -1.0, 32767.0 / 32768.0}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPCMToFloat32_IgnoresTrailingOddByte(t *testing.T) {
	pcm := append(Int16sToBytes([]int16{100, 200}), 0xFF)
	if got := PCMToFloat32(pcm); len(got) != 2 {
		t.Errorf("sample count = %d, want 2", len(got))
	}
}

func TestPCMToFloat32Mono_DownmixesStereo(t *testing.T) {
	// Interleaved L/R frames.
	pcm := Int16sToBytes([]int16{1000, 3000, -2000, 2000})
	got := PCMToFloat32Mono(pcm, 2)

	if len(got) != 2 {
		t.Fatalf("mono sample count = %d, want 2", len(got))
	}
	want := []float64{2000.0 / 32768.0, 0}
	for i := range want {
		if math.Abs(float64(got[i])-want[i]) > 1e-6 {
			t.Errorf("mono sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPCMToFloat32Mono_SingleChannelPassthrough(t *testing.T) {
	pcm := Int16sToBytes([]int16{500, -500})
	mono := PCMToFloat32Mono(pcm, 1)
	direct := PCMToFloat32(pcm)
	if !slices.Equal(mono, direct) {
		t.Errorf("mono = %v, want identical to direct conversion %v", mono, direct)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}

	samples := []float32{0.5, -0.5, 0.5, -0.5}
	if got := RMS(samples); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS = %v, want 0.5", got)
	}
}

func TestRMSToDB(t *testing.T) {
	if got := RMSToDB(1.0); got != 0 {
		t.Errorf("RMSToDB(1) = %v, want 0 dBFS", got)
	}
	if got := RMSToDB(0); got != -96 {
		t.Errorf("RMSToDB(0) = %v, want floor -96", got)
	}
	if got := RMSToDB(1e-10); got != -96 {
		t.Errorf("RMSToDB(1e-10) = %v, want clamped to floor", got)
	}
	if got := RMSToDB(0.1); math.Abs(got-(-20)) > 1e-9 {
		t.Errorf("RMSToDB(0.1) = %v, want -20", got)
	}
}

func TestDurationMs(t *testing.T) {
	// 16 kHz mono 16-bit: 32 bytes per millisecond.
	pcm := make([]byte, 3200)
	if got := DurationMs(pcm, 16000, 1); got != 100 {
		t.Errorf("DurationMs = %d, want 100", got)
	}
	if got := DurationMs(pcm, 0, 1); got != 0 {
		t.Errorf("DurationMs with zero rate = %d, want 0", got)
	}
}
