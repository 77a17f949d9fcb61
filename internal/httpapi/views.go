package httpapi

import (
	"time"

	"github.com/bobby4fischer/pettrack/internal/domain"
)

type petView struct {
	Vitality    int       `json:"vitality"`
	Mood        string    `json:"mood"`
	Expired     bool      `json:"expired"`
	LastDecayAt time.Time `json:"lastDecayAt"`
}

type inventoryView struct {
	Food int `json:"food"`
	Milk int `json:"milk"`
	Toys int `json:"toys"`
}

type userView struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	Gems      int           `json:"gems"`
	Pet       petView       `json:"pet"`
	Inventory inventoryView `json:"inventory"`
}

func toUserView(u *domain.User) userView {
	return userView{
		ID:    u.ID,
		Email: u.Email,
		Gems:  u.Gems,
		Pet: petView{
			Vitality:    u.Pet.Vitality,
			Mood:        string(u.Pet.Mood()),
			Expired:     u.Pet.Expired(),
			LastDecayAt: u.Pet.LastDecayAt,
		},
		Inventory: inventoryView{
			Food: u.Inventory.Food,
			Milk: u.Inventory.Milk,
			Toys: u.Inventory.Toys,
		},
	}
}

type taskView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toTaskView(t *domain.Task) taskView {
	return taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Status:      string(t.Status),
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
	}
}

func toTaskViews(tasks []*domain.Task) []taskView {
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskView(t))
	}
	return out
}

type sessionView struct {
	ID              string     `json:"id"`
	TaskID          *string    `json:"taskId,omitempty"`
	Type            string     `json:"type"`
	StartAt         time.Time  `json:"startAt"`
	EndAt           *time.Time `json:"endAt,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	Completed       bool       `json:"completed"`
}

func toSessionView(s *domain.Session) sessionView {
	return sessionView{
		ID:              s.ID,
		TaskID:          s.TaskID,
		Type:            string(s.Type),
		StartAt:         s.StartAt,
		EndAt:           s.EndAt,
		DurationMinutes: s.DurationMinutes,
		Completed:       s.Completed,
	}
}

func toSessionViews(sessions []*domain.Session) []sessionView {
	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionView(s))
	}
	return out
}
