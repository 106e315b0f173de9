package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/scriber/fundcompare/internal/model"
)

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(question *model.Question) error {
	return r.db.Create(question).Error
}

func (r *questionRepository) Get(id uint) (*model.Question, error) {
	var question model.Question
	err := r.db.Preload("Mold").First(&question, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) GetByFile(fid uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.Preload("Mold").Where("file_id = ?", fid).Find(&questions).Error
	return questions, err
}

func (r *questionRepository) GetByFileAndMolds(fid uint, moldNames []string) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.Preload("Mold").
		Joins("JOIN molds ON molds.id = questions.mold_id").
		Where("questions.file_id = ? AND molds.name IN ?", fid, moldNames).
		Find(&questions).Error
	return questions, err
}

// UnfinishedExists 是否还有未到终态的提取单元
// 终态为预测完成/预测失败/模型未启用
func (r *questionRepository) UnfinishedExists(fids []uint) (bool, error) {
	if len(fids) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.Model(&model.Question{}).
		Where("file_id IN ? AND ai_status NOT IN ?", fids,
			[]int{int(model.AIFinish), int(model.AIFailed), int(model.AIDisable)}).
		Count(&count).Error
	return count > 0, err
}

func (r *questionRepository) UpdateAIStatus(id uint, status model.AIStatus) error {
	return r.db.Model(&model.Question{}).Where("id = ?", id).
		Update("ai_status", int(status)).Error
}

// SaveAnswer 预测回调落库：状态与答案树一次写入
func (r *questionRepository) SaveAnswer(id uint, status model.AIStatus, answer []byte) error {
	return r.db.Model(&model.Question{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_status":     int(status),
			"preset_answer": answer,
		}).Error
}

func (r *questionRepository) DeleteByFile(fid uint) error {
	return r.db.Where("file_id = ?", fid).Delete(&model.Question{}).Error
}
