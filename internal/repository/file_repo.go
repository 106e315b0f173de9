package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/scriber/fundcompare/internal/model"
)

type fileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(file *model.File) error {
	return r.db.Create(file).Error
}

func (r *fileRepository) Get(id uint) (*model.File, error) {
	var file model.File
	err := r.db.First(&file, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) GetWithQuestions(id uint) (*model.File, error) {
	var file model.File
	err := r.db.Preload("Questions").Preload("Questions.Mold").First(&file, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) GetByIDs(ids []uint) ([]model.File, error) {
	var files []model.File
	if len(ids) == 0 {
		return files, nil
	}
	err := r.db.Preload("Questions").Preload("Questions.Mold").Where("id IN ?", ids).Find(&files).Error
	return files, err
}

func (r *fileRepository) GetByProject(projectID uint) ([]model.File, error) {
	var files []model.File
	err := r.db.Preload("Questions").Preload("Questions.Mold").
		Where("project_id = ?", projectID).Order("id").Find(&files).Error
	return files, err
}

func (r *fileRepository) CountByType(projectID uint, source string) (int64, error) {
	var count int64
	err := r.db.Model(&model.File{}).
		Where("project_id = ? AND source = ?", projectID, source).Count(&count).Error
	return count, err
}

func (r *fileRepository) Save(file *model.File) error {
	return r.db.Save(file).Error
}

func (r *fileRepository) UpdateParseStatus(id uint, status model.PDFParseStatus) error {
	return r.db.Model(&model.File{}).Where("id = ?", id).
		Update("pdf_parse_status", int(status)).Error
}

func (r *fileRepository) Delete(id uint) error {
	return r.db.Delete(&model.File{}, id).Error
}
