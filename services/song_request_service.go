package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/kendall-kelly/barpos-api/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateSongRequestInput is the payload for queueing a song
type CreateSongRequestInput struct {
	SongName  string     `json:"songName" binding:"required"`
	TableID   uuid.UUID  `json:"tableId" binding:"required"`
	ClientID  *uuid.UUID `json:"clientId"`
	IsKaraoke bool       `json:"isKaraoke"`
}

// Validate checks the song name and table
func (in CreateSongRequestInput) Validate() error {
	if strings.TrimSpace(in.SongName) == "" {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "songName is required"}
	}
	if in.TableID == uuid.Nil {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "tableId is required"}
	}
	return nil
}

// SongRequestService manages each table's song queue
type SongRequestService struct {
	db       *gorm.DB
	notifier *realtime.Notifier
	logger   *zap.Logger
}

var songRequestServiceInstance *SongRequestService

// NewSongRequestService creates a song request service
func NewSongRequestService(db *gorm.DB, notifier *realtime.Notifier) *SongRequestService {
	if notifier == nil {
		notifier = realtime.NewNotifier(nil)
	}
	return &SongRequestService{db: db, notifier: notifier, logger: zap.L().Named("song_requests")}
}

// InitSongRequestService creates the process-wide song request service
func InitSongRequestService(db *gorm.DB, notifier *realtime.Notifier) *SongRequestService {
	songRequestServiceInstance = NewSongRequestService(db, notifier)
	return songRequestServiceInstance
}

// GetSongRequestService returns the process-wide song request service
func GetSongRequestService() *SongRequestService {
	return songRequestServiceInstance
}

// SetSongRequestService sets the song request service instance (primarily for testing)
func SetSongRequestService(service *SongRequestService) {
	songRequestServiceInstance = service
}

// Create queues a song in the table's latest active round
func (s *SongRequestService) Create(ctx context.Context, in CreateSongRequestInput) (*models.SongRequest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var song models.SongRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Table{}, "Table", in.TableID); err != nil {
			return err
		}
		if in.ClientID != nil {
			if err := ensureExists(tx, &models.Customer{}, "Customer", *in.ClientID); err != nil {
				return err
			}
		}

		round := 1
		var last models.SongRequest
		err := tx.Where("table_id = ? AND is_active = ?", in.TableID, true).
			Order("round_number DESC").
			First(&last).Error
		switch {
		case err == nil:
			round = last.RoundNumber
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		var inRound int64
		if err := tx.Model(&models.SongRequest{}).
			Where("table_id = ? AND round_number = ? AND is_active = ?", in.TableID, round, true).
			Count(&inRound).Error; err != nil {
			return err
		}

		song = models.SongRequest{
			SongName:     strings.TrimSpace(in.SongName),
			TableID:      in.TableID,
			ClientID:     in.ClientID,
			IsKaraoke:    in.IsKaraoke,
			IsPlayed:     false,
			RoundNumber:  round,
			OrderInRound: int(inRound) + 1,
			IsActive:     true,
		}
		return tx.Omit(clause.Associations).Create(&song).Error
	})
	if err != nil {
		return nil, translateStoreError(err, "create song request")
	}

	s.logger.Info("song queued", zap.Stringer("table_id", song.TableID), zap.Int("round", song.RoundNumber), zap.Int("order", song.OrderInRound))
	s.broadcastQueue(ctx, song.TableID)
	return &song, nil
}

// ListActiveByTable returns the table's active queue in play order
func (s *SongRequestService) ListActiveByTable(ctx context.Context, tableID uuid.UUID) ([]models.SongRequest, error) {
	songs := []models.SongRequest{}
	err := s.db.WithContext(ctx).
		Preload("Client").
		Where("table_id = ? AND is_active = ?", tableID, true).
		Order("round_number ASC").
		Order("order_in_round ASC").
		Order("created_at ASC").
		Find(&songs).Error
	if err != nil {
		return nil, translateStoreError(err, "list song requests")
	}
	return songs, nil
}

func (s *SongRequestService) broadcastQueue(ctx context.Context, tableID uuid.UUID) {
	songs, err := s.ListActiveByTable(ctx, tableID)
	if err != nil {
		s.logger.Error("failed to load song queue", zap.Stringer("table_id", tableID), zap.Error(err))
		return
	}
	s.notifier.NotifySongRequestUpdate(tableID, songs)
}

// MarkPlayed flags a song as played
func (s *SongRequestService) MarkPlayed(ctx context.Context, id uuid.UUID) (*models.SongRequest, error) {
	db := s.db.WithContext(ctx)

	var song models.SongRequest
	if err := loadForUpdate(db, &song, "Song request", id); err != nil {
		return nil, translateStoreError(err, "load song request")
	}
	if err := db.Model(&models.SongRequest{}).Where("id = ?", id).Update("is_played", true).Error; err != nil {
		return nil, translateStoreError(err, "mark song request played")
	}
	song.IsPlayed = true

	s.broadcastQueue(ctx, song.TableID)
	return &song, nil
}

// Remove deletes a song from the queue
func (s *SongRequestService) Remove(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)

	var song models.SongRequest
	if err := loadForUpdate(db, &song, "Song request", id); err != nil {
		return translateStoreError(err, "load song request")
	}
	if err := db.Delete(&models.SongRequest{}, "id = ?", id).Error; err != nil {
		return translateStoreError(err, "remove song request")
	}

	s.broadcastQueue(ctx, song.TableID)
	return nil
}

// DeactivateAllByTable clears the table's queue. The next song starts round 1 again.
func (s *SongRequestService) DeactivateAllByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.SongRequest{}).
		Where("table_id = ? AND is_active = ?", tableID, true).
		Update("is_active", false)
	if res.Error != nil {
		return 0, translateStoreError(res.Error, "deactivate song requests")
	}

	s.logger.Info("song queue cleared", zap.Stringer("table_id", tableID), zap.Int64("count", res.RowsAffected))
	s.broadcastQueue(ctx, tableID)
	return res.RowsAffected, nil
}
