package domain

import "time"

const (
	// VitalityMax is the upper clamp for pet vitality.
	VitalityMax = 100
	// RenewVitality is the vitality a pet is reset to on renewal.
	RenewVitality = 80
	// InventoryMax is the per-kind inventory cap.
	InventoryMax = 99
)

// Pet is the virtual companion attached to a user. Vitality is bounded
// [0, VitalityMax] and decays over wall-clock time; Mood is derived from
// vitality and never stored.
type Pet struct {
	Vitality    int
	LastDecayAt time.Time
}

// Expired reports whether the pet has run out of vitality. An expired pet
// neither decays further nor accepts feeding until renewed.
func (p *Pet) Expired() bool {
	return p.Vitality <= 0
}

// Mood derives the displayed mood from current vitality.
func (p *Pet) Mood() PetMood {
	switch {
	case p.Vitality <= 0:
		return MoodExpired
	case p.Vitality >= 80:
		return MoodHappy
	case p.Vitality >= 60:
		return MoodContent
	case p.Vitality >= 40:
		return MoodNeutral
	case p.Vitality >= 20:
		return MoodHungry
	default:
		return MoodWeak
	}
}

// ApplyDecay catches the pet up to now: vitality drops ratePerUnit for every
// whole unit elapsed since LastDecayAt, clamped at zero. LastDecayAt advances
// by whole units only, so the fractional remainder carries into the next
// invocation and repeated calls within one unit are no-ops.
// Returns true if any state changed.
func (p *Pet) ApplyDecay(now time.Time, unit time.Duration, ratePerUnit int) bool {
	if p.Expired() || unit <= 0 || ratePerUnit <= 0 {
		return false
	}
	elapsed := now.Sub(p.LastDecayAt)
	if elapsed < unit {
		return false
	}
	units := int(elapsed / unit)
	p.Vitality -= units * ratePerUnit
	if p.Vitality < 0 {
		p.Vitality = 0
	}
	p.LastDecayAt = p.LastDecayAt.Add(time.Duration(units) * unit)
	return true
}

// Restore raises vitality by gain, clamped at VitalityMax.
func (p *Pet) Restore(gain int) {
	p.Vitality += gain
	if p.Vitality > VitalityMax {
		p.Vitality = VitalityMax
	}
}

// Inventory holds per-kind item counts, each clamped [0, InventoryMax].
type Inventory struct {
	Food int
	Milk int
	Toys int
}

// Count returns the count for the given kind (zero for unknown kinds).
func (i *Inventory) Count(kind ItemKind) int {
	switch kind {
	case ItemFood:
		return i.Food
	case ItemMilk:
		return i.Milk
	case ItemToys:
		return i.Toys
	}
	return 0
}

// Add increments the count for kind, clamped at InventoryMax.
func (i *Inventory) Add(kind ItemKind) {
	i.set(kind, i.Count(kind)+1)
}

// Remove decrements the count for kind. Returns false if none remain.
func (i *Inventory) Remove(kind ItemKind) bool {
	n := i.Count(kind)
	if n <= 0 {
		return false
	}
	i.set(kind, n-1)
	return true
}

func (i *Inventory) set(kind ItemKind, n int) {
	if n > InventoryMax {
		n = InventoryMax
	}
	if n < 0 {
		n = 0
	}
	switch kind {
	case ItemFood:
		i.Food = n
	case ItemMilk:
		i.Milk = n
	case ItemToys:
		i.Toys = n
	}
}

// User is the ledger root: currency balance, pet, and inventory all hang off
// the user row and are only mutated through conditional updates.
type User struct {
	ID               string
	Email            string
	DisplayName      string
	Gems             int
	EmailOptIn       bool
	LastDigestSentAt *time.Time
	Pet              Pet
	Inventory        Inventory
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RenewPet resets an expired (or any) pet to RenewVitality and zeroes the
// user's gems and inventory. The renewal price is everything the user owns.
func (u *User) RenewPet(now time.Time) {
	u.Pet.Vitality = RenewVitality
	u.Pet.LastDecayAt = now
	u.Gems = 0
	u.Inventory = Inventory{}
}
