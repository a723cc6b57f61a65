package game

import "testing"

func TestAchievementEngine_ComboTiersUnlockInOrder(t *testing.T) {
	a := NewAchievementEngine()

	// A 60x combo satisfies all three combo tiers at once; they unlock in
	// catalogue order in a single call.
	got := a.Check(Counters{Combo: 60})
	want := []string{"first_combo", "combo_master", "legendary_combo"}
	if len(got) != len(want) {
		t.Fatalf("unlocked %d achievements, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("unlocked[%d] = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestAchievementEngine_UnlocksAtMostOnce(t *testing.T) {
	a := NewAchievementEngine()

	first := a.Check(Counters{Combo: 10})
	if len(first) != 1 || first[0].ID != "first_combo" {
		t.Fatalf("first check = %v, want first_combo only", first)
	}

	if again := a.Check(Counters{Combo: 10}); len(again) != 0 {
		t.Errorf("repeat check unlocked %v, want nothing", again)
	}
	if again := a.Check(Counters{Combo: 25}); len(again) != 0 {
		t.Errorf("higher combo below next tier unlocked %v, want nothing", again)
	}
}

func TestAchievementEngine_StreakThresholds(t *testing.T) {
	cases := []struct {
		name     string
		counters Counters
		wantID   string
	}{
		{"perfect minute", Counters{PerfectFrames: 60}, "perfect_minute"},
		{"filler free", Counters{FillerFreeFrames: 120}, "no_fillers"},
		{"eye contact", Counters{EyeContactFrames: 180}, "eye_contact_pro"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := NewAchievementEngine()

			// One below the threshold: nothing unlocks.
			below := c.counters
			below.PerfectFrames = max(0, below.PerfectFrames-1)
			below.FillerFreeFrames = max(0, below.FillerFreeFrames-1)
			below.EyeContactFrames = max(0, below.EyeContactFrames-1)
			if got := a.Check(below); len(got) != 0 {
				t.Fatalf("unlocked %v below threshold", got)
			}

			got := a.Check(c.counters)
			if len(got) != 1 || got[0].ID != c.wantID {
				t.Errorf("unlocked = %v, want %q", got, c.wantID)
			}
		})
	}
}

func TestAchievementEngine_TotalXPAndUnlocked(t *testing.T) {
	a := NewAchievementEngine()

	a.Check(Counters{Combo: 30, PerfectFrames: 60})

	// first_combo 100 + combo_master 300 + perfect_minute 250.
	if got := a.TotalXP(); got != 650 {
		t.Errorf("total XP = %d, want 650", got)
	}

	unlocked := a.Unlocked()
	want := []string{"first_combo", "combo_master", "perfect_minute"}
	if len(unlocked) != len(want) {
		t.Fatalf("unlocked count = %d, want %d", len(unlocked), len(want))
	}
	for i, id := range want {
		if unlocked[i].ID != id {
			t.Errorf("unlocked[%d] = %q, want %q (catalogue order)", i, unlocked[i].ID, id)
		}
	}
}

func TestAchievementEngine_Reset(t *testing.T) {
	a := NewAchievementEngine()
	a.Check(Counters{Combo: 10})
	a.Reset()

	if got := a.TotalXP(); got != 0 {
		t.Errorf("total XP after reset = %d, want 0", got)
	}
	if got := a.Check(Counters{Combo: 10}); len(got) != 1 {
		t.Errorf("post-reset check unlocked %d, want 1 (eligible again)", len(got))
	}
}

func TestCatalogue(t *testing.T) {
	cat := Catalogue()
	if len(cat) != 6 {
		t.Fatalf("catalogue size = %d, want 6", len(cat))
	}
	for _, ach := range cat {
		if ach.ID == "" || ach.Name == "" || ach.XP <= 0 {
			t.Errorf("incomplete achievement definition: %+v", ach)
		}
	}
}
