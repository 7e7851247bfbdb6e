package model

import "time"

// Task is a one-shot arrival reminder.
type Task struct {
	ID        string    `json:"id"`
	GuildID   int64     `json:"guild_id"`
	ChannelID int64     `json:"channel_id"`
	UserID    int64     `json:"user_id"`
	FC        string    `json:"fc"`
	Boat      string    `json:"boat"`
	Note      string    `json:"note"`
	ArriveAt  time.Time `json:"arrive_at"`
	Delivered bool      `json:"delivered"`
}

// Due reports whether the task should fire at now.
func (t Task) Due(now time.Time) bool {
	return !t.Delivered && !t.ArriveAt.After(now)
}
