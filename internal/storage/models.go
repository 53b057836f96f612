package storage

import (
	"fmt"
	"time"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/engine"
)

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomInProgress RoomStatus = "in_progress"
	RoomCompleted  RoomStatus = "completed"
)

type Room struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	RoomCode    string     `gorm:"uniqueIndex;size:10" json:"room_code"`
	RoomName    string     `gorm:"size:100" json:"room_name"`
	Status      RoomStatus `gorm:"size:20;default:waiting" json:"status"`
	TeamAName   string     `gorm:"size:50;default:Team A" json:"team_a_name"`
	TeamBName   string     `gorm:"size:50;default:Team B" json:"team_b_name"`
	MaxPerTeam  int        `gorm:"default:5" json:"max_per_team"`
	MapPoolID   *uint      `json:"map_pool_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Admin struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `gorm:"size:100" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type MapDef struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type MapPool struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"size:100" json:"name"`
	Maps      []MapDef  `gorm:"serializer:json" json:"maps"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cards expands the stored defs into a fresh all-available pool.
func (p MapPool) Cards() []engine.MapCard {
	cards := make([]engine.MapCard, 0, len(p.Maps))
	for i, m := range p.Maps {
		cards = append(cards, engine.MapCard{
			ID:     mapCardID(i),
			Name:   m.Name,
			Icon:   m.Icon,
			Status: engine.MapAvailable,
		})
	}
	return cards
}

func mapCardID(i int) string {
	return fmt.Sprintf("map%02d", i+1)
}

type BPRecord struct {
	ID        uint                 `gorm:"primarykey" json:"id"`
	RoomID    uint                 `gorm:"index" json:"room_id"`
	RollA     int                  `json:"roll_a"`
	RollB     int                  `json:"roll_b"`
	FirstTeam engine.Team          `gorm:"size:4" json:"first_team"`
	Entries   []engine.ResultEntry `gorm:"serializer:json" json:"entries"`
	DeciderID string               `gorm:"size:16" json:"decider_id"`
	CreatedAt time.Time            `json:"created_at"`
}

type OperationLog struct {
	ID        uint        `gorm:"primarykey" json:"id"`
	RoomID    uint        `gorm:"index" json:"room_id"`
	Phase     int         `json:"phase"`
	Kind      string      `gorm:"size:10" json:"kind"` // roll | ban | pick | decider
	Team      engine.Team `gorm:"size:4" json:"team,omitempty"`
	MapID     string      `gorm:"size:16" json:"map_id,omitempty"`
	Auto      bool        `json:"auto"`
	CreatedAt time.Time   `json:"created_at"`
}
