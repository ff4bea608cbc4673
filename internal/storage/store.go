// Package storage persists the little state the bot keeps across restarts:
// remembered channel modes, the news item and the admin command log.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const maxEntries = 500

// ChanMode is a mode (v, h or o) the bot restores when nick joins channel.
type ChanMode struct {
	Channel string `gorm:"primaryKey"`
	Nick    string `gorm:"primaryKey"`
	Mode    string
}

// News is the single news item shown by *news.
type News struct {
	ID        uint `gorm:"primaryKey"`
	Text      string
	Setter    string
	UpdatedAt time.Time
}

// CommandLog is one audited admin command.
type CommandLog struct {
	ID       uint `gorm:"primaryKey"`
	At       time.Time
	Hostmask string
	Command  string
}

// Store wraps the SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	return New(db)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&ChanMode{}, &News{}, &CommandLog{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var modeRank = map[string]int{"v": 1, "h": 2, "o": 3}

// UpdateChanMode remembers or forgets a mode. A plain mode ("v", "h", "o")
// is stored when nothing is stored yet and replaces a lower one. A removal
// ("-v", "-h", "-o") only forgets the record when it matches exactly.
func (s *Store) UpdateChanMode(ctx context.Context, channel, nick, mode string) error {
	channel, nick = strings.ToLower(channel), strings.ToLower(nick)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur ChanMode
		err := tx.Where("channel = ? AND nick = ?", channel, nick).Take(&cur).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, "failed to look up channel mode")
		}

		if strings.HasPrefix(mode, "-") {
			if found && cur.Mode == mode[1:] {
				return errors.Wrap(tx.Delete(&cur).Error, "failed to delete channel mode")
			}
			return nil
		}

		rank, ok := modeRank[mode]
		if !ok {
			return nil
		}
		if found && modeRank[cur.Mode] >= rank {
			return nil
		}
		rec := ChanMode{Channel: channel, Nick: nick, Mode: mode}
		err = tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
		return errors.Wrap(err, "failed to store channel mode")
	})
}

// ChanMode returns the remembered mode for nick in channel, or "".
func (s *Store) ChanMode(ctx context.Context, channel, nick string) (string, error) {
	var cur ChanMode
	err := s.db.WithContext(ctx).
		Where("channel = ? AND nick = ?", strings.ToLower(channel), strings.ToLower(nick)).
		Take(&cur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to look up channel mode")
	}
	return cur.Mode, nil
}

// News returns the stored news item. ok is false if none was ever set.
func (s *Store) News(ctx context.Context) (news News, ok bool, err error) {
	err = s.db.WithContext(ctx).Take(&news, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return News{}, false, nil
	}
	if err != nil {
		return News{}, false, errors.Wrap(err, "failed to load news")
	}
	return news, true, nil
}

// SetNews replaces the news item.
func (s *Store) SetNews(ctx context.Context, text, setter string) error {
	news := News{ID: 1, Text: text, Setter: setter}
	err := s.db.WithContext(ctx).Save(&news).Error
	return errors.Wrap(err, "failed to save news")
}

// LogCommand appends to the command log, keeping the newest maxEntries.
func (s *Store) LogCommand(ctx context.Context, hostmask, command string) error {
	db := s.db.WithContext(ctx)
	entry := CommandLog{At: time.Now().UTC(), Hostmask: hostmask, Command: command}
	if err := db.Create(&entry).Error; err != nil {
		return errors.Wrap(err, "failed to log command")
	}
	err := db.Where("id <= ?", int(entry.ID)-maxEntries).Delete(&CommandLog{}).Error
	return errors.Wrap(err, "failed to trim command log")
}

// RecentCommands returns up to n log entries, newest first.
func (s *Store) RecentCommands(ctx context.Context, n int) ([]CommandLog, error) {
	var out []CommandLog
	err := s.db.WithContext(ctx).Order("id desc").Limit(n).Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to read command log")
	}
	return out, nil
}
