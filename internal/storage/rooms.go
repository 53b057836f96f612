package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

const roomCodeLength = 8

// GenerateRoomCode returns an 8-char uppercase alphanumeric code. Codes are
// capabilities handed to players, so they come from crypto/rand.
func GenerateRoomCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, roomCodeLength)
	for i := 0; i < roomCodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateRoom inserts r, minting a unique room code first.
func (db *DB) CreateRoom(r *Room) error {
	for {
		code, err := GenerateRoomCode()
		if err != nil {
			return fmt.Errorf("generate room code: %w", err)
		}
		if _, err := db.RoomByCode(code); errors.Is(err, ErrNotFound) {
			r.RoomCode = code
			break
		} else if err != nil {
			return err
		}
	}
	return db.Create(r).Error
}

func (db *DB) RoomByCode(code string) (*Room, error) {
	var r Room
	if err := db.Where("room_code = ?", code).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (db *DB) RoomByID(id uint) (*Room, error) {
	var r Room
	if err := db.First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (db *DB) ListRooms() ([]Room, error) {
	var rooms []Room
	if err := db.Order("created_at desc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (db *DB) SetRoomStatus(id uint, status RoomStatus) error {
	updates := map[string]any{"status": status}
	if status == RoomCompleted {
		now := time.Now().UTC()
		updates["completed_at"] = &now
	}
	return db.Model(&Room{}).Where("id = ?", id).Updates(updates).Error
}

func (db *DB) AdminByUsername(username string) (*Admin, error) {
	var a Admin
	if err := db.Where("username = ?", username).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (db *DB) CreateMapPool(p *MapPool) error {
	return db.Create(p).Error
}

func (db *DB) ListMapPools() ([]MapPool, error) {
	var pools []MapPool
	if err := db.Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

func (db *DB) MapPoolByID(id uint) (*MapPool, error) {
	var p MapPool
	if err := db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
