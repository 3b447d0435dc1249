package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CanvasState is the editor state a user saved for a translation job. The
// template JSON is stored as received.
type CanvasState struct {
	ID            uint      `gorm:"primaryKey"`
	RequestID     string    `gorm:"column:request_id;uniqueIndex;size:128"`
	FinalImageURL string    `gorm:"column:final_image_url;type:text"`
	InPaintingURL string    `gorm:"column:inpainting_url;type:text"`
	SourceURL     string    `gorm:"column:source_url;type:text"`
	TemplateJSON  string    `gorm:"column:template_json;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

// TableName overrides the default table name.
func (CanvasState) TableName() string {
	return "canvas_states"
}

// SaveCanvasState upserts the editor state for a RequestId.
func (r *TaskRepository) SaveCanvasState(ctx context.Context, state *CanvasState) error {
	return r.retries.Do(ctx, "repository.save_canvas_state", state.RequestID, func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "request_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"final_image_url", "inpainting_url", "source_url", "template_json", "updated_at"}),
		}).Create(state).Error
	})
}

// FindCanvasState loads the saved editor state for a RequestId.
func (r *TaskRepository) FindCanvasState(ctx context.Context, requestID string) (*CanvasState, error) {
	var state CanvasState
	err := r.retries.Do(ctx, "repository.find_canvas_state", requestID, func() error {
		err := r.db.WithContext(ctx).First(&state, "request_id = ?", requestID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}
