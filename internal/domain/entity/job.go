package entity

import "time"

// Job represents one pending reminder. The id doubles as the user-facing
// task text: identity is derived from content, not a generated surrogate.
type Job struct {
	ID     string    `gorm:"column:id;primaryKey"`
	FireAt time.Time `gorm:"column:fire_at;index"`
	Text   string    `gorm:"column:text;type:text"`
	Room   string    `gorm:"column:room"`
}

// TableName specifies the table name for the Job entity.
func (Job) TableName() string {
	return "pending_jobs"
}

// Payload is the opaque data delivered to the fire callback. The store
// never interprets it.
type Payload struct {
	Text string
	Room string
}

// Payload returns the job's callback payload.
func (j *Job) Payload() Payload {
	return Payload{Text: j.Text, Room: j.Room}
}
