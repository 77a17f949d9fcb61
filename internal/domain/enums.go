package domain

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

type ItemKind string

const (
	ItemFood ItemKind = "food"
	ItemMilk ItemKind = "milk"
	ItemToys ItemKind = "toys"
)

// ValidItemKinds is the canonical set of accepted store item kinds.
var ValidItemKinds = map[ItemKind]bool{
	ItemFood: true, ItemMilk: true, ItemToys: true,
}

type ActivityKind string

const (
	ActivityIdle      ActivityKind = "idle"
	ActivityDeviation ActivityKind = "deviation"
)

// ValidActivityKinds is the canonical set of accepted activity event kinds.
var ValidActivityKinds = map[ActivityKind]bool{
	ActivityIdle: true, ActivityDeviation: true,
}

type PetMood string

const (
	MoodExpired PetMood = "expired"
	MoodWeak    PetMood = "weak"
	MoodHungry  PetMood = "hungry"
	MoodNeutral PetMood = "neutral"
	MoodContent PetMood = "content"
	MoodHappy   PetMood = "happy"
)

type SessionType string

const (
	SessionPomodoro SessionType = "pomodoro"
)
