package game

// Counters is the session-state snapshot achievements are evaluated against.
// The owning session maintains these; the achievement engine only reads them.
type Counters struct {
	// Combo is the current combo count.
	Combo int `json:"combo"`

	// PerfectFrames counts consecutive frames scoring 90 or higher.
	PerfectFrames int `json:"perfect_frames"`

	// FillerFreeFrames counts consecutive frames without a detected filler word.
	FillerFreeFrames int `json:"filler_free_frames"`

	// EyeContactFrames counts consecutive frames with eye contact ≥ 0.9.
	EyeContactFrames int `json:"eye_contact_frames"`
}

// Achievement is one unlockable reward.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	XP          int    `json:"xp"`
}

// achievementDef pairs an Achievement with its unlock predicate.
type achievementDef struct {
	Achievement
	condition func(Counters) bool
}

// catalogue is the fixed, process-wide achievement set. Immutable after
// init; safe for unsynchronised concurrent reads.
var catalogue = []achievementDef{
	{
		Achievement: Achievement{ID: "first_combo", Name: "First Combo!", Description: "Build your first 10x combo", XP: 100},
		condition:   func(c Counters) bool { return c.Combo >= 10 },
	},
	{
		Achievement: Achievement{ID: "combo_master", Name: "Combo Master", Description: "Reach a 30x combo", XP: 300},
		condition:   func(c Counters) bool { return c.Combo >= 30 },
	},
	{
		Achievement: Achievement{ID: "legendary_combo", Name: "Legendary Combo", Description: "Reach a 60x combo", XP: 500},
		condition:   func(c Counters) bool { return c.Combo >= 60 },
	},
	{
		Achievement: Achievement{ID: "perfect_minute", Name: "Perfect Minute", Description: "Maintain 90+ score for 1 minute", XP: 250},
		condition:   func(c Counters) bool { return c.PerfectFrames >= 60 },
	},
	{
		Achievement: Achievement{ID: "no_fillers", Name: "Filler-Free", Description: "Speak for 2 minutes without filler words", XP: 200},
		condition:   func(c Counters) bool { return c.FillerFreeFrames >= 120 },
	},
	{
		Achievement: Achievement{ID: "eye_contact_pro", Name: "Eye Contact Pro", Description: "Maintain 90%+ eye contact for 3 minutes", XP: 300},
		condition:   func(c Counters) bool { return c.EyeContactFrames >= 180 },
	},
}

// Catalogue returns the fixed achievement definitions, without predicates.
func Catalogue() []Achievement {
	out := make([]Achievement, len(catalogue))
	for i, def := range catalogue {
		out[i] = def.Achievement
	}
	return out
}

// AchievementEngine tracks which achievements a session has unlocked.
// Each achievement unlocks at most once per session; its predicate is not
// re-evaluated afterwards.
type AchievementEngine struct {
	unlocked map[string]Achievement
}

// NewAchievementEngine creates an engine with an empty unlocked set.
func NewAchievementEngine() *AchievementEngine {
	return &AchievementEngine{unlocked: make(map[string]Achievement)}
}

// Check evaluates every still-locked catalogue entry against the counters
// and returns the achievements newly unlocked by this call, in catalogue
// order. Calling Check again with the same counters returns nothing.
func (a *AchievementEngine) Check(c Counters) []Achievement {
	var unlocked []Achievement
	for _, def := range catalogue {
		if _, done := a.unlocked[def.ID]; done {
			continue
		}
		if def.condition(c) {
			a.unlocked[def.ID] = def.Achievement
			unlocked = append(unlocked, def.Achievement)
		}
	}
	return unlocked
}

// Unlocked returns the achievements unlocked so far, in catalogue order.
func (a *AchievementEngine) Unlocked() []Achievement {
	var out []Achievement
	for _, def := range catalogue {
		if ach, ok := a.unlocked[def.ID]; ok {
			out = append(out, ach)
		}
	}
	return out
}

// TotalXP sums the XP of the unlocked set only.
func (a *AchievementEngine) TotalXP() int {
	total := 0
	for _, ach := range a.unlocked {
		total += ach.XP
	}
	return total
}

// Reset clears the unlocked set.
func (a *AchievementEngine) Reset() {
	a.unlocked = make(map[string]Achievement)
}
