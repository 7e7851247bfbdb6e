package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"subreminder/internal/model"
)

// taskRecord is the row layout of the sqlite backend. The arrival instant is
// kept as Unix nanoseconds so it round-trips exactly.
type taskRecord struct {
	ID        string `gorm:"primaryKey"`
	GuildID   int64  `gorm:"index"`
	ChannelID int64
	UserID    int64
	FC        string
	Boat      string
	Note      string
	ArriveAt  int64 `gorm:"index"`
	Delivered bool  `gorm:"default:false"`
}

func (taskRecord) TableName() string { return "tasks" }

func toRecord(t model.Task) taskRecord {
	return taskRecord{
		ID:        t.ID,
		GuildID:   t.GuildID,
		ChannelID: t.ChannelID,
		UserID:    t.UserID,
		FC:        t.FC,
		Boat:      t.Boat,
		Note:      t.Note,
		ArriveAt:  t.ArriveAt.UnixNano(),
		Delivered: t.Delivered,
	}
}

func (r taskRecord) toTask() model.Task {
	return model.Task{
		ID:        r.ID,
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		FC:        r.FC,
		Boat:      r.Boat,
		Note:      r.Note,
		ArriveAt:  time.Unix(0, r.ArriveAt).UTC(),
		Delivered: r.Delivered,
	}
}

// SQLiteSnapshot stores the task index in a single sqlite table.
type SQLiteSnapshot struct {
	db      *gorm.DB
	existed bool
}

// NewSQLiteSnapshot migrates the tasks table on db.
func NewSQLiteSnapshot(db *gorm.DB) (*SQLiteSnapshot, error) {
	existed := db.Migrator().HasTable(&taskRecord{})
	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return &SQLiteSnapshot{db: db, existed: existed}, nil
}

func (s *SQLiteSnapshot) Load(ctx context.Context) (map[string]model.Task, bool, error) {
	var records []taskRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, false, fmt.Errorf("find tasks: %w", err)
	}
	tasks := make(map[string]model.Task, len(records))
	for _, r := range records {
		tasks[r.ID] = r.toTask()
	}
	return tasks, s.existed, nil
}

// Save replaces every row inside one transaction.
func (s *SQLiteSnapshot) Save(ctx context.Context, tasks map[string]model.Task) error {
	records := make([]taskRecord, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, toRecord(t))
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&taskRecord{}).Error; err != nil {
			return fmt.Errorf("clear tasks: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, 100).Error; err != nil {
			return fmt.Errorf("insert tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.existed = true
	return nil
}

func (s *SQLiteSnapshot) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
