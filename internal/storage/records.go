package storage

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"gorm.io/gorm"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/engine"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/room"
)

// Records reads and writes finished BP records and their operation logs.
// Finished records are immutable, so reads go through an LRU cache.
type Records struct {
	db    *DB
	cache *lru.Cache
}

func NewRecords(db *DB, cacheSize int) (*Records, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("record cache: %w", err)
	}
	return &Records{db: db, cache: cache}, nil
}

func (r *Records) ByRoom(roomID uint) (*BPRecord, error) {
	if v, ok := r.cache.Get(roomID); ok {
		rec := v.(BPRecord)
		return &rec, nil
	}

	var rec BPRecord
	if err := r.db.Where("room_id = ?", roomID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.cache.Add(roomID, rec)
	return &rec, nil
}

func (r *Records) Save(rec *BPRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		return err
	}
	r.cache.Add(rec.RoomID, *rec)
	return nil
}

func (r *Records) AppendOperation(op *OperationLog) error {
	return r.db.Create(op).Error
}

func (r *Records) OperationsByRoom(roomID uint) ([]OperationLog, error) {
	var ops []OperationLog
	if err := r.db.Where("room_id = ?", roomID).Order("id").Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

// RoomRecorder binds Records to one room actor; it satisfies room.Recorder.
type RoomRecorder struct {
	records *Records
	roomID  uint
}

func NewRoomRecorder(records *Records, roomID uint) *RoomRecorder {
	return &RoomRecorder{records: records, roomID: roomID}
}

func (rr *RoomRecorder) RecordOperation(op room.Operation) error {
	return rr.records.AppendOperation(&OperationLog{
		RoomID: rr.roomID,
		Phase:  op.Phase,
		Kind:   op.Kind,
		Team:   op.Team,
		MapID:  op.MapID,
		Auto:   op.Auto,
	})
}

func (rr *RoomRecorder) RecordResult(res engine.Result) error {
	if err := rr.records.Save(&BPRecord{
		RoomID:    rr.roomID,
		RollA:     res.RollA,
		RollB:     res.RollB,
		FirstTeam: res.FirstTeam,
		Entries:   res.Entries,
		DeciderID: res.DeciderID,
	}); err != nil {
		return err
	}
	return rr.records.db.SetRoomStatus(rr.roomID, RoomCompleted)
}
