package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scriber/fundcompare/internal/model"
)

type fileAnswerRepository struct {
	db *gorm.DB
}

func NewFileAnswerRepository(db *gorm.DB) FileAnswerRepository {
	return &fileAnswerRepository{db: db}
}

// Upsert 以 (task_id, file_id) 为冲突键覆盖写入
func (r *fileAnswerRepository) Upsert(fa *model.FileAnswer) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}, {Name: "file_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "schema", "answer", "updated_at"}),
	}).Create(fa).Error
}

func (r *fileAnswerRepository) GetByTask(taskID uint) ([]model.FileAnswer, error) {
	var answers []model.FileAnswer
	err := r.db.Where("task_id = ?", taskID).Find(&answers).Error
	return answers, err
}

func (r *fileAnswerRepository) GetByTaskAndFile(taskID, fid uint) (*model.FileAnswer, error) {
	var fa model.FileAnswer
	err := r.db.Where("task_id = ? AND file_id = ?", taskID, fid).First(&fa).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fa, nil
}

func (r *fileAnswerRepository) DeleteByTaskAndFile(taskID, fid uint) error {
	return r.db.Where("task_id = ? AND file_id = ?", taskID, fid).Delete(&model.FileAnswer{}).Error
}

func (r *fileAnswerRepository) DeleteByTask(taskID uint) error {
	return r.db.Where("task_id = ?", taskID).Delete(&model.FileAnswer{}).Error
}
